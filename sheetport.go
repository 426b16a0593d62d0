// Package sheetport imports and exports tabular data against a declared
// record schema. An upload flows through a two-phase protocol: a
// preview pass decodes, resolves headers, and dry-runs the import so
// the caller can show exactly what would change, then a confirm pass
// replays the stored upload and commits it row by row.
package sheetport

import (
	"context"
	"fmt"
	"time"

	"github.com/sheetport/sheetport/internal/audit"
	"github.com/sheetport/sheetport/pkg/dataset"
	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/formats"
	"github.com/sheetport/sheetport/pkg/headers"
	"github.com/sheetport/sheetport/pkg/importer"
	"github.com/sheetport/sheetport/pkg/logging"
	"github.com/sheetport/sheetport/pkg/schema"
	"github.com/sheetport/sheetport/pkg/tmpstorage"
)

// Upload is one uploaded file plus how to read it.
type Upload struct {
	// Data is the raw file content.
	Data []byte

	// FormatIndex addresses the codec in the registry's order.
	FormatIndex int

	// Filename is the original upload name, echoed in the preview token.
	Filename string

	// Charset names the text encoding when the file is not UTF-8
	// ("latin1", "windows-1252", ...). Ignored for binary formats.
	Charset string

	// Rule maps original headers to field ids. When nil, the registry is
	// consulted by header hash; when no predefined rule matches either,
	// headers are treated as field ids.
	Rule headers.Rule
}

// PreflightInfo reports what an upload looks like before any diffing:
// its headers, their hash, and whether a predefined rule matches.
type PreflightInfo struct {
	Headers     []string
	HeaderHash  string
	Rule        headers.Rule
	RuleMatched bool
}

// Token identifies a previewed upload awaiting confirmation. The blob
// behind Handle holds the converted dataset, already resolved to field
// ids, so confirming replays exactly what the preview diffed.
type Token struct {
	Handle       string
	OriginalName string
	Format       string
}

// Preview is the outcome of the dry-run phase. Token is nil when the
// preview produced errors; such an upload cannot be confirmed.
type Preview struct {
	Result     *importer.Result
	Resolution *headers.Resolution
	Token      *Token
}

// Client is the import/export facade for one resource.
type Client interface {
	// Preflight decodes an upload just far enough to report its headers,
	// header hash, and any predefined rule match. Nothing is diffed.
	Preflight(data []byte, formatIdx int, charset string) (*PreflightInfo, error)

	// BeginImport decodes, resolves, and dry-runs an upload. A clean
	// preview stores the converted dataset and returns a Token for
	// ConfirmImport.
	BeginImport(ctx context.Context, up Upload) (*Preview, error)

	// ConfirmImport commits a previously previewed upload. The stored
	// blob is removed once the commit finishes without errors.
	ConfirmImport(ctx context.Context, token Token) (*importer.Result, error)

	// Export serializes the records matching filter and returns the
	// bytes plus a suggested filename.
	Export(ctx context.Context, formatIdx int, filter schema.Filter) ([]byte, string, error)
}

// client is the unexported Client implementation.
type client struct {
	resource  *schema.Resource
	storage   schema.Storage
	formats   *formats.Registry
	tmp       tmpstorage.Storage
	rules     *headers.Registry
	importer  *importer.Importer
	audit     audit.Recorder
	skipAudit bool
}

// New assembles a Client from functional options. WithResource is
// required; everything else has a default.
func New(opts ...Option) (Client, error) {
	cfg := &config{}
	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if err := cfg.defaults(); err != nil {
		return nil, err
	}

	imp, err := importer.New(cfg.resource, cfg.storage)
	if err != nil {
		return nil, err
	}

	return &client{
		resource:  cfg.resource,
		storage:   cfg.storage,
		formats:   cfg.formats,
		tmp:       cfg.tmp,
		rules:     cfg.rules,
		importer:  imp,
		audit:     cfg.audit,
		skipAudit: cfg.skipAudit,
	}, nil
}

// Preflight implements Client.
func (c *client) Preflight(data []byte, formatIdx int, charset string) (*PreflightInfo, error) {
	ds, _, err := c.decode(data, formatIdx, charset)
	if err != nil {
		return nil, err
	}

	hs := ds.Headers()
	info := &PreflightInfo{
		Headers:    hs,
		HeaderHash: headers.Hash(hs),
	}
	info.Rule, info.RuleMatched = c.rules.Lookup(info.HeaderHash)
	return info, nil
}

// BeginImport implements Client.
func (c *client) BeginImport(ctx context.Context, up Upload) (*Preview, error) {
	log := logging.FromContext(ctx)

	ds, format, err := c.decode(up.Data, up.FormatIndex, up.Charset)
	if err != nil {
		return nil, err
	}

	rule := up.Rule
	if rule == nil {
		if matched, ok := c.rules.Match(ds.Headers()); ok {
			rule = matched
			log.Debug().Str("resource", c.resource.Name()).Msg("Predefined header rule matched")
		}
	}

	resolution, err := headers.Resolve(ds, c.resource, rule)
	if err != nil {
		return nil, err
	}
	if len(resolution.Dropped) > 0 {
		log.Warn().
			Strs("columns", resolution.Dropped).
			Msg("Unmapped columns dropped from upload")
	}

	result, err := c.importer.Import(ctx, ds, importer.WithDryRun(true))
	if err != nil {
		return nil, err
	}

	preview := &Preview{Result: result, Resolution: resolution}
	if result.HasErrors() {
		log.Info().Str("resource", c.resource.Name()).Msg("Preview has errors; upload not stored")
		return preview, nil
	}

	// Store the converted dataset, not the original bytes: the confirm
	// phase must replay exactly what was previewed, without re-running
	// header resolution.
	converted, err := format.ExportData(ds)
	if err != nil {
		return nil, err
	}
	handle, err := c.tmp.Save(converted)
	if err != nil {
		return nil, err
	}

	preview.Token = &Token{
		Handle:       handle,
		OriginalName: up.Filename,
		Format:       format.Name(),
	}
	log.Info().
		Str("resource", c.resource.Name()).
		Str("handle", handle).
		Msg("Preview stored for confirmation")
	return preview, nil
}

// ConfirmImport implements Client.
func (c *client) ConfirmImport(ctx context.Context, token Token) (*importer.Result, error) {
	format, err := c.formats.ByName(token.Format)
	if err != nil {
		return nil, err
	}

	data, err := c.tmp.Read(token.Handle)
	if err != nil {
		return nil, err
	}
	ds, err := format.CreateDataset(data)
	if err != nil {
		return nil, err
	}

	// The stored dataset is already resolved to field ids; a nil rule
	// passes its headers straight through.
	result, err := c.importer.Import(ctx, ds, importer.WithRaiseOnError(true))
	if err != nil {
		return result, err
	}

	if !c.skipAudit {
		if err := audit.RecordResult(ctx, c.audit, result); err != nil {
			return result, err
		}
	}

	if err := c.tmp.Remove(token.Handle); err != nil {
		logging.FromContext(ctx).Warn().
			Str("handle", token.Handle).
			Err(err).
			Msg("Failed to remove confirmed upload blob")
	}
	return result, nil
}

// Export implements Client.
func (c *client) Export(ctx context.Context, formatIdx int, filter schema.Filter) ([]byte, string, error) {
	format, err := c.formats.ByIndex(formatIdx)
	if err != nil {
		return nil, "", err
	}
	if !format.CanExport() {
		return nil, "", errors.NewConfigError("export",
			fmt.Sprintf("format %q does not support export", format.Name()), nil)
	}

	records, err := c.storage.List(ctx, filter)
	if err != nil {
		return nil, "", err
	}

	fieldIDs := c.resource.FieldIDs()
	ds := dataset.New(fieldIDs...)
	for _, rec := range records {
		row := make([]string, len(fieldIDs))
		for i, fieldID := range fieldIDs {
			row[i] = rec.Get(fieldID)
		}
		if err := ds.Append(row); err != nil {
			return nil, "", err
		}
	}

	data, err := format.ExportData(ds)
	if err != nil {
		return nil, "", err
	}

	filename := fmt.Sprintf("%s-%s.%s",
		c.resource.Name(), time.Now().Format("2006-01-02"), format.Extension())
	logging.FromContext(ctx).Info().
		Str("resource", c.resource.Name()).
		Str("filename", filename).
		Int("records", len(records)).
		Msg("Export produced")
	return data, filename, nil
}

// decode runs charset decoding and the codec's parser over raw bytes.
func (c *client) decode(data []byte, formatIdx int, charset string) (*dataset.Dataset, formats.Format, error) {
	format, err := c.formats.ByIndex(formatIdx)
	if err != nil {
		return nil, nil, err
	}
	if !format.CanImport() {
		return nil, nil, errors.NewConfigError("import",
			fmt.Sprintf("format %q does not support import", format.Name()), nil)
	}

	if !format.IsBinary() {
		data, err = formats.Decode(data, charset)
		if err != nil {
			return nil, nil, err
		}
	}

	ds, err := format.CreateDataset(data)
	if err != nil {
		return nil, nil, errors.NewDatasetError(format.Name(), "upload could not be parsed", err)
	}
	return ds, format, nil
}
