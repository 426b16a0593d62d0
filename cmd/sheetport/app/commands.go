package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sheetport/sheetport"
	"github.com/sheetport/sheetport/internal/audit"
	"github.com/sheetport/sheetport/internal/storage/sqlite"
	"github.com/sheetport/sheetport/pkg/errors"
	"github.com/sheetport/sheetport/pkg/formats"
	"github.com/sheetport/sheetport/pkg/headers"
	"github.com/sheetport/sheetport/pkg/logging"
	"github.com/sheetport/sheetport/pkg/schema"
	"github.com/sheetport/sheetport/pkg/schema/memory"
	"github.com/sheetport/sheetport/pkg/tmpstorage"
)

// Execute runs the CLI with the given arguments.
func (a *App) Execute(ctx context.Context, args []string) error {
	root := a.rootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(logging.WithLogger(ctx, a.logger))
}

func (a *App) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "sheetport",
		Short:         "Import and export tabular data against a record schema",
		Version:       a.Version(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.config.ResourceFile, "resource", a.config.ResourceFile, "resource definition file (YAML)")
	flags.StringVar(&a.config.DBPath, "db", a.config.DBPath, `SQLite database path, or "memory"`)
	flags.StringVar(&a.config.TempDir, "temp-dir", a.config.TempDir, "directory for previewed uploads")

	root.AddCommand(a.importCommand())
	root.AddCommand(a.exportCommand())
	root.AddCommand(a.formatsCommand())
	return root
}

// session is everything a command needs for one invocation.
type session struct {
	client  sheetport.Client
	formats *formats.Registry
	rules   map[string]headers.Rule
	close   func() error
}

// openSession assembles a client from the CLI configuration.
func (a *App) openSession(ctx context.Context) (*session, error) {
	res, registry, rulesByName, err := loadResource(a.config.ResourceFile)
	if err != nil {
		return nil, err
	}

	reg := formats.DefaultRegistry()

	var storage schema.Storage
	var recorder audit.Recorder
	closeFn := func() error { return nil }
	if a.config.DBPath == "memory" {
		store, err := memory.New(res)
		if err != nil {
			return nil, err
		}
		storage = store
		recorder = audit.LogRecorder{}
	} else {
		store, err := sqlite.Open(ctx, a.config.DBPath, res)
		if err != nil {
			return nil, err
		}
		storage = store
		recorder = store
		closeFn = store.Close
	}

	tmp, err := tmpstorage.NewFolder(a.config.TempDir)
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	client, err := sheetport.New(
		sheetport.WithResource(res),
		sheetport.WithStorage(storage),
		sheetport.WithFormats(reg),
		sheetport.WithTempStorage(tmp),
		sheetport.WithRules(registry),
		sheetport.WithAuditRecorder(recorder),
	)
	if err != nil {
		_ = closeFn()
		return nil, err
	}

	return &session{client: client, formats: reg, rules: rulesByName, close: closeFn}, nil
}

func (a *App) importCommand() *cobra.Command {
	var (
		formatName string
		charset    string
		ruleName   string
		dryRun     bool
	)

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Preview and commit a tabular file import",
		Long: "Import decodes the file, resolves its headers against the resource\n" +
			"schema, and shows what would change. Without --dry-run the previewed\n" +
			"changes are committed row by row.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.close() //nolint:errcheck

			path := args[0]
			data, err := os.ReadFile(path)
			if err != nil {
				return errors.WrapIO("read", path, err)
			}

			name := formatName
			if name == "" {
				name = strings.TrimPrefix(filepath.Ext(path), ".")
			}
			idx, err := formatIndex(sess.formats, name)
			if err != nil {
				return err
			}

			var rule headers.Rule
			if ruleName != "" {
				var ok bool
				if rule, ok = sess.rules[ruleName]; !ok {
					return errors.NewConfigError("import",
						fmt.Sprintf("rule %q is not defined in the resource file", ruleName), nil)
				}
			}

			preview, err := sess.client.BeginImport(ctx, sheetport.Upload{
				Data:        data,
				FormatIndex: idx,
				Filename:    filepath.Base(path),
				Charset:     charset,
				Rule:        rule,
			})
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), preview.Result.String())
			if preview.Result.HasErrors() {
				return errors.ErrImportFailed
			}
			if dryRun {
				return nil
			}

			result, err := sess.client.ConfirmImport(ctx, *preview.Token)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), result.Summary())
			return nil
		},
	}

	cmd.Flags().StringVar(&formatName, "format", "", "input format (default: by file extension)")
	cmd.Flags().StringVar(&charset, "charset", "", "text encoding of the file (e.g. latin1)")
	cmd.Flags().StringVar(&ruleName, "rule", "", "named header rule from the resource file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview only, commit nothing")
	return cmd
}

func (a *App) exportCommand() *cobra.Command {
	var (
		formatName string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored records to a tabular file",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			sess, err := a.openSession(ctx)
			if err != nil {
				return err
			}
			defer sess.close() //nolint:errcheck

			idx, err := formatIndex(sess.formats, formatName)
			if err != nil {
				return err
			}

			data, filename, err := sess.client.Export(ctx, idx, schema.Filter{})
			if err != nil {
				return err
			}

			if output == "" {
				output = filename
			}
			if err := os.WriteFile(output, data, 0o644); err != nil { //nolint:gosec
				return errors.WrapIO("write", output, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), output)
			return nil
		},
	}

	cmd.Flags().StringVar(&formatName, "format", "csv", "output format")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output path (default: <resource>-<date>.<ext>)")
	return cmd
}

func (a *App) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported formats and their capabilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-8s %-6s %-24s %-7s %s\n", "NAME", "EXT", "CONTENT TYPE", "IMPORT", "EXPORT")
			for _, f := range formats.DefaultRegistry().Formats() {
				fmt.Fprintf(out, "%-8s %-6s %-24s %-7s %s\n",
					f.Name(), f.Extension(), f.ContentType(), yesNo(f.CanImport()), yesNo(f.CanExport()))
			}
			return nil
		},
	}
}

// formatIndex resolves a format name to its registry position.
func formatIndex(reg *formats.Registry, name string) (int, error) {
	if name == "" {
		return 0, fmt.Errorf("%w: no format given and none could be inferred", errors.ErrFormatUnknown)
	}
	for i, f := range reg.Formats() {
		if f.Name() == strings.ToLower(name) {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", errors.ErrFormatUnknown, name)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
