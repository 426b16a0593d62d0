// Package headers reconciles arbitrary spreadsheet column headers with a
// declared record schema. It provides the deterministic header-set hash,
// header-to-field rules, a registry of predefined rules for known
// spreadsheet layouts, and the resolver that rewrites a dataset's columns
// into schema field identifiers.
package headers

import (
	"crypto/sha1" //nolint:gosec // content fingerprint, not a security boundary
	"encoding/hex"
	"strings"
)

// Hash returns the deterministic digest identifying a header set: the
// sha1 of the headers joined by "|", in the order given. Permuting the
// headers changes the hash. The digest is stable across runs and
// platforms and is the key into the predefined rule registry.
func Hash(headers []string) string {
	sum := sha1.Sum([]byte(strings.Join(headers, "|"))) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// Rule maps original column headers to schema field identifiers.
type Rule map[string]string

// Clone returns a copy of the rule.
func (r Rule) Clone() Rule {
	clone := make(Rule, len(r))
	for k, v := range r {
		clone[k] = v
	}
	return clone
}

// Pair is one ordered (display label, field id) entry of a predefined
// rule. Order matters: the rule's identity is the hash of its labels in
// declaration order.
type Pair struct {
	Label   string // Original column header as it appears in the sheet
	FieldID string // Schema field the column maps to
}

// RuleFromPairs builds a Rule from ordered pairs and returns it with the
// header-set hash that identifies it.
func RuleFromPairs(pairs []Pair) (Rule, string) {
	rule := make(Rule, len(pairs))
	labels := make([]string, len(pairs))
	for i, p := range pairs {
		rule[p.Label] = p.FieldID
		labels[i] = p.Label
	}
	return rule, Hash(labels)
}

// Registry maps header-set hashes to predefined rules, letting known
// spreadsheet layouts skip interactive mapping. Built once from static
// configuration and read-only thereafter.
type Registry struct {
	rules map[string]Rule
}

// NewRegistry builds a registry from predefined rule pair sets.
func NewRegistry(ruleSets ...[]Pair) *Registry {
	rules := make(map[string]Rule, len(ruleSets))
	for _, pairs := range ruleSets {
		rule, hash := RuleFromPairs(pairs)
		rules[hash] = rule
	}
	return &Registry{rules: rules}
}

// Lookup returns the predefined rule for a header-set hash.
func (r *Registry) Lookup(headerHash string) (Rule, bool) {
	rule, ok := r.rules[headerHash]
	if !ok {
		return nil, false
	}
	return rule.Clone(), true
}

// Match returns the predefined rule for a header set, hashing it first.
func (r *Registry) Match(headers []string) (Rule, bool) {
	return r.Lookup(Hash(headers))
}

// Len returns the number of registered rules.
func (r *Registry) Len() int {
	return len(r.rules)
}
