// Package app wires the sheetport CLI together: configuration loading,
// logger construction, and the cobra command tree.
package app

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/sheetport/sheetport/pkg/logging"
)

// App is the CLI application with its configuration and logger.
type App struct {
	version string
	commit  string
	date    string

	config *Config
	logger *zerolog.Logger
}

// New creates the application, loading configuration from environment,
// .env files, and an optional config file.
func New(version, commit, date string) (*App, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	logger := *logging.Default()
	switch {
	case config.Quiet:
		logger = logger.Level(zerolog.ErrorLevel)
	case config.Verbose:
		logger = logger.Level(zerolog.DebugLevel)
	}

	return &App{
		version: version,
		commit:  commit,
		date:    date,
		config:  config,
		logger:  &logger,
	}, nil
}

// Version returns the version string.
func (a *App) Version() string {
	return fmt.Sprintf("%s (commit %s, built %s)", a.version, a.commit, a.date)
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// ExitOnError prints the error to stderr and exits non-zero.
func ExitOnError(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}
