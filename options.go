package sheetport

import (
	"github.com/sheetport/sheetport/internal/audit"
	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/formats"
	"github.com/sheetport/sheetport/pkg/headers"
	"github.com/sheetport/sheetport/pkg/schema"
	"github.com/sheetport/sheetport/pkg/schema/memory"
	"github.com/sheetport/sheetport/pkg/tmpstorage"
)

// Option is a function that configures a Client.
type Option func(*config) error

// config is the assembled client configuration.
type config struct {
	resource  *schema.Resource
	storage   schema.Storage
	formats   *formats.Registry
	tmp       tmpstorage.Storage
	rules     *headers.Registry
	audit     audit.Recorder
	skipAudit bool
}

// WithResource sets the target resource. Required.
func WithResource(res *schema.Resource) Option {
	return func(cfg *config) error {
		if res == nil {
			return errors.NewConfigError("client", "resource cannot be nil", nil)
		}
		cfg.resource = res
		return nil
	}
}

// WithStorage sets the record storage backend. Defaults to an in-memory
// store.
func WithStorage(storage schema.Storage) Option {
	return func(cfg *config) error {
		if storage == nil {
			return errors.NewConfigError("client", "storage cannot be nil", nil)
		}
		cfg.storage = storage
		return nil
	}
}

// WithFormats sets the codec registry. Defaults to the standard set.
func WithFormats(reg *formats.Registry) Option {
	return func(cfg *config) error {
		if reg == nil {
			return errors.NewConfigError("client", "format registry cannot be nil", nil)
		}
		cfg.formats = reg
		return nil
	}
}

// WithTempStorage sets the blob store holding uploads between preview
// and confirm. Defaults to an in-memory store.
func WithTempStorage(tmp tmpstorage.Storage) Option {
	return func(cfg *config) error {
		if tmp == nil {
			return errors.NewConfigError("client", "temp storage cannot be nil", nil)
		}
		cfg.tmp = tmp
		return nil
	}
}

// WithRules sets the predefined header rule registry.
func WithRules(rules *headers.Registry) Option {
	return func(cfg *config) error {
		if rules == nil {
			return errors.NewConfigError("client", "rule registry cannot be nil", nil)
		}
		cfg.rules = rules
		return nil
	}
}

// WithAuditRecorder sets the audit trail destination. Defaults to the
// structured log.
func WithAuditRecorder(rec audit.Recorder) Option {
	return func(cfg *config) error {
		if rec == nil {
			return errors.NewConfigError("client", "audit recorder cannot be nil", nil)
		}
		cfg.audit = rec
		return nil
	}
}

// WithSkipAudit disables the audit trail for committed imports.
func WithSkipAudit(skip bool) Option {
	return func(cfg *config) error {
		cfg.skipAudit = skip
		return nil
	}
}

// defaults fills unset configuration with the library defaults.
func (cfg *config) defaults() error {
	if cfg.resource == nil {
		return errors.NewConfigError("client", "a resource is required", nil)
	}
	if cfg.storage == nil {
		store, err := memory.New(cfg.resource)
		if err != nil {
			return err
		}
		cfg.storage = store
	}
	if cfg.formats == nil {
		cfg.formats = formats.DefaultRegistry()
	}
	if cfg.tmp == nil {
		cfg.tmp = tmpstorage.NewMemory()
	}
	if cfg.rules == nil {
		cfg.rules = headers.NewRegistry()
	}
	if cfg.audit == nil {
		cfg.audit = audit.LogRecorder{}
	}
	return nil
}
