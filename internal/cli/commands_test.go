package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/homesync/internal/bitmap"
	"github.com/roach88/homesync/internal/launcher"
	"github.com/roach88/homesync/internal/record"
	"github.com/roach88/homesync/internal/stream"
	"github.com/roach88/homesync/internal/store"
	"github.com/roach88/homesync/internal/testutil"
)

// env holds the file paths of one CLI scenario.
type env struct {
	dir    string
	db     string
	remote string
	state  string
	target string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	return &env{
		dir:    dir,
		db:     filepath.Join(dir, "launcher.db"),
		remote: filepath.Join(dir, "remote.db"),
		state:  filepath.Join(dir, "state", "journal.bin"),
		target: filepath.Join(dir, "target.db"),
	}
}

// seed writes rows into the launcher database.
func (e *env) seed(t *testing.T, items []launcher.ItemRow, screens ...launcher.ScreenRow) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(e.db)
	require.NoError(t, err)
	defer st.Close()
	for _, it := range items {
		require.NoError(t, st.PutItem(ctx, it))
	}
	for _, sc := range screens {
		require.NoError(t, st.PutScreen(ctx, sc))
	}
}

func (e *env) backupArgs(extra ...string) []string {
	return append([]string{"backup", "--db", e.db, "--remote", e.remote, "--state", e.state}, extra...)
}

var cameraComponent = launcher.ComponentName{Package: "com.example.camera", Class: "com.example.camera.CameraActivity"}

func camera() launcher.ItemRow {
	return launcher.ItemRow{
		ID:        5,
		Modified:  1_700_000_000_000,
		ItemType:  launcher.ItemTypeApplication,
		Container: launcher.ContainerDesktop,
		Title:     "Camera",
		Intent:    launcher.FormatIntent(cameraComponent),
		SpanX:     1,
		SpanY:     1,
	}
}

func decodeJSON[T any](t *testing.T, out string) (string, T) {
	t.Helper()
	var resp struct {
		Status string `json:"status"`
		Data   T      `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp.Status, resp.Data
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	e := newEnv(t)
	e.seed(t, []launcher.ItemRow{camera()}, launcher.ScreenRow{ID: 0, Modified: 1_700_000_000_000})

	out, err := execute(t, e.backupArgs("--format", "json")...)
	require.NoError(t, err, out)
	status, result := decodeJSON[BackupResult](t, out)
	assert.Equal(t, "ok", status)
	assert.True(t, result.Complete)
	require.Len(t, result.Passes, 1)
	assert.Equal(t, int64(2), result.Passes[0].Rows)
	assert.Equal(t, 2, result.Passes[0].Keys)

	// Icons and widgets wait for a resource directory.
	types := result.Passes[0].Types
	require.Len(t, types, 4)
	assert.True(t, types[2].Postponed)
	assert.True(t, types[3].Postponed)

	out, err = execute(t, "journal", "--state", e.state, "--format", "json")
	require.NoError(t, err, out)
	_, journal := decodeJSON[JournalResult](t, out)
	assert.True(t, journal.Exists)
	require.Len(t, journal.Keys, 2)
	assert.Equal(t, JournalKey{Type: "item", Name: "5", Key: "CAEQBSDgjtGfCA=="}, journal.Keys[0])

	out, err = execute(t, "inspect", "--remote", e.remote, "--format", "json")
	require.NoError(t, err, out)
	_, inspect := decodeJSON[InspectResult](t, out)
	assert.Len(t, inspect.Entities, 2)
	assert.Zero(t, inspect.Invalid)

	restoreState := filepath.Join(e.dir, "restored.bin")
	out, err = execute(t, "restore", "--remote", e.remote, "--db", e.target, "--state", restoreState, "--format", "json")
	require.NoError(t, err, out)
	_, restored := decodeJSON[RestoreResult](t, out)
	assert.Equal(t, map[string]int{"item": 1, "screen": 1}, restored.Applied)
	assert.Equal(t, 2, restored.JournalKeys)

	target, err := store.Open(e.target)
	require.NoError(t, err)
	defer target.Close()
	item, err := target.ReadItem(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "Camera", item.Title)
	assert.Equal(t, camera().Intent, item.Intent)

	out, err = execute(t, "journal", "--state", restoreState)
	require.NoError(t, err)
	assert.Contains(t, out, "timestamp: 0")
}

func TestBackup_SecondPassIsIncremental(t *testing.T) {
	e := newEnv(t)
	e.seed(t, []launcher.ItemRow{camera()})

	_, err := execute(t, e.backupArgs()...)
	require.NoError(t, err)

	out, err := execute(t, e.backupArgs("--format", "json")...)
	require.NoError(t, err)
	_, result := decodeJSON[BackupResult](t, out)
	assert.Zero(t, result.Passes[0].Rows)
}

// writeResources creates a resource directory with one icon per component.
func writeResources(t *testing.T, dir string, components ...launcher.ComponentName) string {
	t.Helper()
	res := filepath.Join(dir, "res")
	require.NoError(t, os.MkdirAll(res, 0o755))

	png, err := bitmap.Compress(testutil.SolidImage(4, 4, color.RGBA{G: 0xff, A: 0xff}))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(res, "icon.png"), png, 0o644))

	var b strings.Builder
	b.WriteString("icons:\n")
	for _, cn := range components {
		fmt.Fprintf(&b, "  %s: icon.png\n", cn.FlattenShort())
	}
	require.NoError(t, os.WriteFile(filepath.Join(res, "manifest.yaml"), []byte(b.String()), 0o644))
	return res
}

func TestBackup_ResourcesAndPasses(t *testing.T) {
	var items []launcher.ItemRow
	var components []launcher.ComponentName
	for i := 0; i < 3; i++ {
		pkg := fmt.Sprintf("com.example.app%d", i)
		cn := launcher.ComponentName{Package: pkg, Class: pkg + ".Main"}
		components = append(components, cn)
		items = append(items, launcher.ItemRow{
			ID:       int64(i + 1),
			Modified: 1_700_000_000_000,
			ItemType: launcher.ItemTypeApplication,
			Intent:   launcher.FormatIntent(cn),
		})
	}

	t.Run("single pass leaves work deferred", func(t *testing.T) {
		e := newEnv(t)
		e.seed(t, items)
		res := writeResources(t, e.dir, components...)

		out, err := execute(t, e.backupArgs("--resources", res, "--icon-quota", "1")...)
		require.Error(t, err)
		assert.Equal(t, ExitFailure, GetExitCode(err))
		assert.Contains(t, out, "2 deferred")
		assert.Contains(t, out, "Backup incomplete")
	})

	t.Run("extra passes drain the quota", func(t *testing.T) {
		e := newEnv(t)
		e.seed(t, items)
		res := writeResources(t, e.dir, components...)

		out, err := execute(t, e.backupArgs("--resources", res, "--icon-quota", "1", "--max-passes", "5", "--format", "json")...)
		require.NoError(t, err, out)
		_, result := decodeJSON[BackupResult](t, out)
		assert.Len(t, result.Passes, 3)
		assert.True(t, result.Complete)

		remote, err := store.Open(e.remote)
		require.NoError(t, err)
		defer remote.Close()
		entities, err := remote.ReadEntities(context.Background())
		require.NoError(t, err)
		assert.Len(t, entities, 6)
	})
}

func TestBackup_ConfigFile(t *testing.T) {
	e := newEnv(t)
	e.seed(t, []launcher.ItemRow{camera()})

	bad := filepath.Join(e.dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("icon_quota: 0\n"), 0o644))
	_, err := execute(t, append(e.backupArgs(), "--config", bad)...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	good := filepath.Join(e.dir, "good.yaml")
	require.NoError(t, os.WriteFile(good, []byte("envelope_checksum: length\njournal_keys: discard\n"), 0o644))
	out, err := execute(t, append(e.backupArgs("--format", "json"), "--config", good)...)
	require.NoError(t, err, out)
	_, result := decodeJSON[BackupResult](t, out)
	assert.Zero(t, result.Passes[0].Keys)

	// The journal is only readable in the mode it was written in.
	_, err = execute(t, "journal", "--state", e.state)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = execute(t, "journal", "--state", e.state, "--config", good)
	assert.NoError(t, err)
}

func TestBackup_InvalidMaxPasses(t *testing.T) {
	e := newEnv(t)
	_, err := execute(t, e.backupArgs("--max-passes", "0")...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestInspect_ReportsInvalidEntities(t *testing.T) {
	e := newEnv(t)
	e.seed(t, []launcher.ItemRow{camera()})
	_, err := execute(t, e.backupArgs()...)
	require.NoError(t, err)

	remote, err := store.Open(e.remote)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, remote.WriteEntity(ctx, stream.Value("bogus", []byte{1})))
	require.NoError(t, remote.WriteEntity(ctx, stream.Value(record.NewIDKey(record.ScreenKey, 9).Encode(), []byte{0x0a, 0x00, 0x10, 0x01})))
	require.NoError(t, remote.Close())

	out, err := execute(t, "inspect", "--remote", e.remote)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "3 entities, 2 invalid")
	assert.Contains(t, out, "KEY_PARSING")
	assert.Contains(t, out, "INTEGRITY")

	restoreState := filepath.Join(e.dir, "restored.bin")
	out, err = execute(t, "restore", "--remote", e.remote, "--db", e.target, "--state", restoreState)
	require.Error(t, err)
	assert.Contains(t, out, "1 invalid keys")
	assert.Contains(t, out, "item   1 applied")
	assert.Contains(t, out, "2 entities skipped")
}

func TestInspect_EmptyRemote(t *testing.T) {
	e := newEnv(t)
	out, err := execute(t, "inspect", "--remote", e.remote)
	require.NoError(t, err)
	assert.Contains(t, out, "No entities found")
}

func TestJournal_Missing(t *testing.T) {
	e := newEnv(t)
	out, err := execute(t, "journal", "--state", e.state)
	require.NoError(t, err)
	assert.Contains(t, out, "No journal")
}

func TestJournal_Corrupt(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(e.state), 0o700))
	require.NoError(t, os.WriteFile(e.state, []byte("garbage"), 0o600))

	out, err := execute(t, "journal", "--state", e.state, "--format", "json")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "E_CORRUPT", resp.Error.Code)
}

func TestBackupRestore_WriteMetricsFile(t *testing.T) {
	e := newEnv(t)
	e.seed(t, []launcher.ItemRow{camera()}, launcher.ScreenRow{ID: 0, Modified: 1_700_000_000_000})

	backupMetrics := filepath.Join(e.dir, "backup.prom")
	_, err := execute(t, e.backupArgs("--metrics", backupMetrics)...)
	require.NoError(t, err)

	data, err := os.ReadFile(backupMetrics)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "homesync_backup_passes_total 1\n")
	assert.Contains(t, text, `homesync_backup_records_total{type="item"} 1`)
	assert.Contains(t, text, `homesync_backup_records_total{type="screen"} 1`)
	assert.NotContains(t, text, "homesync_restore_sessions_total 1")

	restoreMetrics := filepath.Join(e.dir, "restore.prom")
	_, err = execute(t, "restore", "--remote", e.remote, "--db", e.target,
		"--state", filepath.Join(e.dir, "restored.bin"), "--metrics", restoreMetrics)
	require.NoError(t, err)

	data, err = os.ReadFile(restoreMetrics)
	require.NoError(t, err)
	text = string(data)
	assert.Contains(t, text, "homesync_restore_sessions_total 1\n")
	assert.Contains(t, text, `homesync_restore_entities_total{outcome="applied",type="item"} 1`)
	assert.Contains(t, text, `homesync_restore_entities_total{outcome="applied",type="screen"} 1`)
}

func TestBackup_MetricsCountEveryPass(t *testing.T) {
	e := newEnv(t)
	var items []launcher.ItemRow
	var components []launcher.ComponentName
	for i := 0; i < 3; i++ {
		pkg := fmt.Sprintf("com.example.app%d", i)
		cn := launcher.ComponentName{Package: pkg, Class: pkg + ".Main"}
		components = append(components, cn)
		items = append(items, launcher.ItemRow{ID: int64(i + 1), Modified: 1_700_000_000_000, ItemType: launcher.ItemTypeApplication, Intent: launcher.FormatIntent(cn)})
	}
	e.seed(t, items)
	res := writeResources(t, e.dir, components...)

	path := filepath.Join(e.dir, "metrics", "backup.prom")
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	_, err := execute(t, e.backupArgs("--resources", res, "--icon-quota", "1", "--max-passes", "5", "--metrics", path)...)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "homesync_backup_passes_total 3\n")
	assert.Contains(t, text, `homesync_backup_records_total{type="icon"} 3`)
	assert.Contains(t, text, `homesync_backup_deferred_total{type="icon"} 3`)
}

func TestBackup_MetricsPathUnwritable(t *testing.T) {
	e := newEnv(t)
	e.seed(t, []launcher.ItemRow{camera()})

	_, err := execute(t, e.backupArgs("--metrics", filepath.Join(e.dir, "missing", "backup.prom"))...)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
