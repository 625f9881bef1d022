package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/homesync/internal/engine"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/statefile"
	"github.com/roach88/homesync/internal/store"
)

// RestoreOptions holds flags for the restore command.
type RestoreOptions struct {
	*RootOptions
	Remote   string
	Database string
	State    string
	Checksum string
	Metrics  string

	// SessionIDs overrides the session id generator (for testing).
	SessionIDs engine.SessionIDGenerator
}

// RestoreResult holds the output of the restore command.
type RestoreResult struct {
	Session     string         `json:"session"`
	Entities    int            `json:"entities"`
	Applied     map[string]int `json:"applied"`
	Skipped     map[string]int `json:"skipped"`
	InvalidKeys int            `json:"invalid_keys"`
	JournalKeys int            `json:"journal_keys"`
}

// NewRestoreCommand creates the restore command.
func NewRestoreCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RestoreOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Apply a remote backup to a launcher database",
		Long: `Restore every entity in a remote backup store into a launcher database.

Entities are verified and decoded one at a time; damaged entities are skipped
and reported. The post-restore journal is written to --state so that the next
backup pass from the target exports everything again.

Exit codes:
  0 - All entities applied
  1 - Some entities were skipped
  2 - Command error

Example:
  homesync restore --remote remote.db --db launcher.db --state journal.bin`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Remote, "remote", "", "path to remote backup store (required)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "path to target launcher database (required)")
	cmd.Flags().StringVar(&opts.State, "state", "", "path to journal state file (required)")
	cmd.Flags().StringVar(&opts.Checksum, "checksum", "", "envelope checksum mode: content|length (overrides config)")
	cmd.Flags().StringVar(&opts.Metrics, "metrics", "", "write restore metrics to this file in Prometheus text format")
	_ = cmd.MarkFlagRequired("remote")
	_ = cmd.MarkFlagRequired("db")
	_ = cmd.MarkFlagRequired("state")

	return cmd
}

func runRestore(opts *RestoreOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	logger := opts.logger(cmd.ErrOrStderr())

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if opts.Checksum != "" {
		cfg.EnvelopeChecksum = opts.Checksum
	}
	engineOpts, err := engineOptions(cfg, logger, opts.SessionIDs)
	if err != nil {
		return err
	}
	sink := newMetricsSink(opts.Metrics)
	engineOpts = append(engineOpts, sink.option())

	remote, err := store.Open(opts.Remote, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open remote store", err)
	}
	defer remote.Close()

	entities, err := remote.ReadEntities(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read remote entities", err)
	}

	target, err := store.Open(opts.Database, store.WithLogger(logger))
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open launcher database", err)
	}
	defer target.Close()

	session := engine.New(target, nil, engineOpts...).NewRestore(target)
	for _, e := range entities {
		// Skips are logged by the session and counted in its report.
		_ = session.RestoreEntity(ctx, e)
	}
	report := session.Finalize()

	if err := statefile.Write(opts.State, report.State); err != nil {
		return WrapExitError(ExitCommandError, "failed to write journal", err)
	}
	if err := sink.flush(); err != nil {
		return err
	}

	result := RestoreResult{
		Session:     report.SessionID,
		Entities:    len(entities),
		Applied:     countsByType(report.AppliedByType),
		Skipped:     countsByType(report.SkippedByType),
		InvalidKeys: report.InvalidKeys,
		JournalKeys: len(report.Journal.Keys),
	}

	f := opts.formatter(cmd)
	text := func(w io.Writer) { writeRestoreText(w, result) }
	if n := report.Skipped(); n > 0 {
		return f.Failure("E_SKIPPED", fmt.Sprintf("%d entities skipped", n), result, text)
	}
	return f.Success(result, text)
}

func countsByType(m map[record.KeyType]int) map[string]int {
	out := make(map[string]int, len(m))
	for t, n := range m {
		out[t.String()] = n
	}
	return out
}

func writeRestoreText(w io.Writer, result RestoreResult) {
	fmt.Fprintf(w, "Restore: %d entities (%s)\n", result.Entities, result.Session)
	for _, t := range record.KeyTypes {
		name := t.String()
		applied, skipped := result.Applied[name], result.Skipped[name]
		if applied == 0 && skipped == 0 {
			continue
		}
		fmt.Fprintf(w, "  %-6s %d applied", name, applied)
		if skipped > 0 {
			fmt.Fprintf(w, ", %d skipped", skipped)
		}
		fmt.Fprintln(w)
	}
	if result.InvalidKeys > 0 {
		fmt.Fprintf(w, "  %d invalid keys\n", result.InvalidKeys)
	}
	if len(result.Skipped) == 0 && result.InvalidKeys == 0 {
		fmt.Fprintln(w, "✓ Restore complete")
	}
}
