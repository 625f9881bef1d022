package cli

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/homesync/internal/config"
	"github.com/roach88/homesync/internal/engine"
	"github.com/roach88/homesync/internal/envelope"
	"github.com/roach88/homesync/internal/resources"
	"github.com/roach88/homesync/internal/statefile"
	"github.com/roach88/homesync/internal/store"
)

// BackupOptions holds flags for the backup command.
type BackupOptions struct {
	*RootOptions
	Database  string
	Remote    string
	State     string
	Resources string
	MaxPasses int
	Metrics   string

	IconQuota   int
	WidgetQuota int
	Checksum    string

	// SessionIDs overrides the pass id generator (for testing).
	SessionIDs engine.SessionIDGenerator
}

// TypeSummary is the per-type part of a pass summary.
type TypeSummary struct {
	Type       string `json:"type"`
	Written    int    `json:"written"`
	Tombstones int    `json:"tombstones"`
	Skipped    int    `json:"skipped"`
	Deferred   int    `json:"deferred"`
	Bytes      int64  `json:"bytes"`
	Postponed  bool   `json:"postponed,omitempty"`
	Error      string `json:"error,omitempty"`
}

// PassSummary describes one backup pass.
type PassSummary struct {
	Session     string        `json:"session"`
	Timestamp   int64         `json:"timestamp"`
	Rows        int64         `json:"rows"`
	Bytes       int64         `json:"bytes"`
	Keys        int           `json:"keys"`
	AnotherPass bool          `json:"another_pass"`
	Types       []TypeSummary `json:"types"`
}

// BackupResult holds the output of the backup command.
type BackupResult struct {
	Passes   []PassSummary `json:"passes"`
	Complete bool          `json:"complete"`
}

// NewBackupCommand creates the backup command.
func NewBackupCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackupOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Export the launcher layout into the remote store",
		Long: `Run incremental backup passes from a launcher database into a remote
key/value store.

Each pass exports items and screens changed since the journal in --state,
new icons and widgets up to the per-pass quota, and tombstones for removed
keys. Passes repeat while the engine asks for another one, up to --max-passes.
The journal is rewritten after every pass.

Exit codes:
  0 - Backup complete
  1 - A record type was aborted or resources are still deferred by quota
  2 - Command error (bad flags, unreadable config, database not found)

Examples:
  homesync backup --db launcher.db --remote remote.db --state journal.bin
  homesync backup --db launcher.db --remote remote.db --state journal.bin --resources ./res --max-passes 5
  homesync backup --db launcher.db --remote remote.db --state journal.bin --metrics /var/lib/node_exporter/homesync.prom`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to launcher database (required)")
	cmd.Flags().StringVar(&opts.Remote, "remote", "", "path to remote backup store (required)")
	cmd.Flags().StringVar(&opts.State, "state", "", "path to journal state file (required)")
	cmd.Flags().StringVar(&opts.Resources, "resources", "", "resource directory with manifest.yaml (overrides config)")
	cmd.Flags().IntVar(&opts.MaxPasses, "max-passes", 1, "maximum number of passes to run")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write pass metrics to this file in Prometheus text format")
	cmd.Flags().IntVar(&opts.IconQuota, "icon-quota", 0, "new icons per pass (overrides config)")
	cmd.Flags().IntVar(&opts.WidgetQuota, "widget-quota", 0, "new widgets per pass (overrides config)")
	cmd.Flags().StringVar(&opts.Checksum, "checksum", "", "envelope checksum mode: content|length (overrides config)")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("remote")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}

func runBackup(opts *BackupOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger(cmd.ErrOrStderr())

	if opts.MaxPasses < 1 {
		return NewExitError(ExitCommandError, "--max-passes must be at least 1")
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.IconQuota > 0 {
		cfg.IconQuota = opts.IconQuota
	}
	if opts.WidgetQuota > 0 {
		cfg.WidgetQuota = opts.WidgetQuota
	}
	if opts.Checksum != "" {
		cfg.EnvelopeChecksum = opts.Checksum
	}
	if opts.Resources != "" {
		cfg.ResourcesDir = opts.Resources
	}

	engineOpts, err := engineOptions(cfg, logger, opts.SessionIDs)
	if err != nil {
		return err
	}
	sink := newMetricsSink(opts.Metrics)
	engineOpts = append(engineOpts, sink.option())
	if cfg.ResourcesDir != "" {
		catalog, err := resources.Load(cfg.ResourcesDir)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to load resources", err)
		}
		engineOpts = append(engineOpts, engine.WithResources(catalog))
	}

	src, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open launcher database", err)
	}
	defer src.Close()

	remote, err := store.Open(opts.Remote, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open remote store", err)
	}
	defer remote.Close()

	sched := &passScheduler{}
	eng := engine.New(src, sched, engineOpts...)

	result := BackupResult{}
	var last *engine.PassReport
	for pass := 0; pass < opts.MaxPasses; pass++ {
		state, err := statefile.Read(opts.State, cfg.MaxJournalBytes)
		if errors.Is(err, statefile.ErrTooLarge) {
			logger.Warn("journal too large, exporting everything", "path", opts.State, "limit", cfg.MaxJournalBytes)
			state = nil
		} else if err != nil {
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}

		sched.requested = false
		last = eng.Backup(ctx, state, remote)
		if err := statefile.Write(opts.State, last.State); err != nil {
			return WrapExitError(ExitCommandError, "failed to write journal", err)
		}
		result.Passes = append(result.Passes, summarizePass(last))

		// Another pass only helps while quota left work behind; a missing
		// resource provider stays missing.
		if !sched.requested || len(last.Deferred) == 0 {
			break
		}
	}

	if err := sink.flush(); err != nil {
		return err
	}

	result.Complete = len(last.Deferred) == 0 && !anyAborted(last)
	f := opts.formatter(cmd)
	text := func(w io.Writer) { writeBackupText(w, result, opts.Verbose) }
	if !result.Complete {
		return f.Failure("E_INCOMPLETE", "backup incomplete", result, text)
	}
	return f.Success(result, text)
}

// passScheduler records whether the engine asked for another pass.
type passScheduler struct {
	requested bool
}

func (s *passScheduler) RequestAnotherPass() {
	s.requested = true
}

// engineOptions translates configuration into engine options.
func engineOptions(cfg *config.Config, logger *slog.Logger, ids engine.SessionIDGenerator) ([]engine.Option, error) {
	mode, err := envelope.ParseChecksumMode(cfg.EnvelopeChecksum)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid checksum mode", err)
	}
	opts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithChecksumMode(mode),
		engine.WithIconQuota(cfg.IconQuota),
		engine.WithWidgetQuota(cfg.WidgetQuota),
		engine.WithDPI(cfg.DPI),
		engine.WithJournalKeys(cfg.JournalKeys != config.JournalKeysDiscard),
	}
	if ids != nil {
		opts = append(opts, engine.WithSessionIDs(ids))
	}
	return opts, nil
}

func anyAborted(r *engine.PassReport) bool {
	for _, tr := range r.Types {
		if tr.Aborted() {
			return true
		}
	}
	return false
}

func summarizePass(r *engine.PassReport) PassSummary {
	s := PassSummary{
		Session:     r.SessionID,
		Timestamp:   r.Journal.Timestamp,
		Rows:        r.Journal.Rows,
		Bytes:       r.Journal.Bytes,
		Keys:        len(r.Journal.Keys),
		AnotherPass: r.RequestedAnotherPass,
	}
	for _, tr := range r.Types {
		ts := TypeSummary{
			Type:       tr.Type.String(),
			Written:    tr.Written,
			Tombstones: tr.Tombstones,
			Skipped:    tr.Skipped,
			Deferred:   tr.Deferred,
			Bytes:      tr.Bytes,
			Postponed:  tr.Postponed,
		}
		if tr.Err != nil {
			ts.Error = tr.Err.Error()
		}
		s.Types = append(s.Types, ts)
	}
	return s
}

func writeBackupText(w io.Writer, result BackupResult, verbose bool) {
	fmt.Fprintf(w, "Backup: %d pass(es)\n", len(result.Passes))
	for i, p := range result.Passes {
		fmt.Fprintf(w, "\nPass %d (%s)\n", i+1, p.Session)
		for _, t := range p.Types {
			switch {
			case t.Error != "":
				fmt.Fprintf(w, "  %-6s aborted: %s\n", t.Type, t.Error)
			case t.Postponed:
				fmt.Fprintf(w, "  %-6s postponed: no resource provider\n", t.Type)
			default:
				fmt.Fprintf(w, "  %-6s %d written, %d deleted", t.Type, t.Written, t.Tombstones)
				if t.Deferred > 0 {
					fmt.Fprintf(w, ", %d deferred", t.Deferred)
				}
				if t.Skipped > 0 {
					fmt.Fprintf(w, ", %d skipped", t.Skipped)
				}
				fmt.Fprintln(w)
			}
		}
		if verbose {
			fmt.Fprintf(w, "  journal: timestamp=%d rows=%d bytes=%d keys=%d\n", p.Timestamp, p.Rows, p.Bytes, p.Keys)
		}
	}
	fmt.Fprintln(w)
	if result.Complete {
		fmt.Fprintln(w, "✓ Backup complete")
	} else {
		fmt.Fprintln(w, "✗ Backup incomplete; run again to continue")
	}
}
