package cli_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/2beens/fittrack/internal/cli"
	"github.com/2beens/fittrack/internal/kvstore"
	"github.com/2beens/fittrack/internal/tracker"
	"github.com/2beens/fittrack/pkg"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func run(t *testing.T, store kvstore.Store, args ...string) (string, error) {
	t.Helper()
	cmd := cli.NewRootCmd(
		cli.WithStore(store),
		cli.WithClock(func() time.Time { return testNow }),
	)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, store kvstore.Store, args ...string) string {
	t.Helper()
	out, err := run(t, store, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func TestExerciseCommands(t *testing.T) {
	store := kvstore.NewMemoryStore()

	assert.Equal(t, "added exercise plank\n", mustRun(t, store, "add", "Plank", "--icon", "🧘"))

	out := mustRun(t, store, "list")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 6)
	assert.True(t, strings.HasPrefix(lines[0], "ID"))
	assert.Contains(t, lines[5], "plank")
	assert.Contains(t, lines[5], "Plank")

	assert.Equal(t, "plank is now 🧘 Side Plank\n", mustRun(t, store, "rename", "plank", "Side Plank"))
	assert.Equal(t, "removed exercise plank\n", mustRun(t, store, "remove", "plank"))

	_, err := run(t, store, "remove", "flexao")
	assert.ErrorIs(t, err, tracker.ErrProtectedExercise)
	_, err = run(t, store, "remove", "plank")
	assert.ErrorIs(t, err, tracker.ErrExerciseNotFound)
	_, err = run(t, store, "add", "!!!")
	assert.ErrorIs(t, err, tracker.ErrInvalidName)
}

func TestCounterCommands(t *testing.T) {
	store := kvstore.NewMemoryStore()

	assert.Equal(t, "flexao completed: 3\n", mustRun(t, store, "inc", "flexao", "-n", "3"))
	assert.Equal(t, "flexao repetitions: 5\n", mustRun(t, store, "inc", "flexao", "repetitions", "-n", "9"))
	assert.Equal(t, "barra completed: 7\n", mustRun(t, store, "set", "barra", "completed", "7"))
	assert.Equal(t, "barra completed: 6\n", mustRun(t, store, "dec", "barra"))
	assert.Equal(t, "barra completed: 0\n", mustRun(t, store, "dec", "barra", "completed", "-n", "10"))
	mustRun(t, store, "set", "barra", "completed", "7")

	assert.Equal(t, "exercises: 4\ncompleted: 10\nrepetitions: 5\n", mustRun(t, store, "today"))

	_, err := run(t, store, "inc", "flexao", "weight")
	assert.ErrorIs(t, err, tracker.ErrInvalidField)
	_, err = run(t, store, "inc", "flexao", "-n", "0")
	assert.ErrorIs(t, err, tracker.ErrInvalidAmount)
	_, err = run(t, store, "set", "barra", "completed", "many")
	assert.Error(t, err)
}

func TestStatsCommands(t *testing.T) {
	store := kvstore.NewMemoryStore()
	mustRun(t, store, "inc", "flexao", "-n", "4")

	out := mustRun(t, store, "history", "flexao")
	assert.Contains(t, out, "2024-03-15")

	out = mustRun(t, store, "history", "barra", "-d", "7")
	assert.Equal(t, "no records in the last 7 days\n", out)

	out = mustRun(t, store, "stats", "flexao")
	assert.Contains(t, out, "avg completed / day    4.0")
	assert.Contains(t, out, "best day               2024-03-15 (4)")
	assert.Contains(t, out, "streak                 1")

	out = mustRun(t, store, "summary")
	assert.Contains(t, out, "completed              4")
	assert.Contains(t, out, "best exercise          Flexões (4)")

	_, err := run(t, store, "stats", "missing")
	assert.ErrorIs(t, err, tracker.ErrExerciseNotFound)
}

func TestExportImportCommands(t *testing.T) {
	source := kvstore.NewMemoryStore()
	mustRun(t, source, "add", "Corrida")
	mustRun(t, source, "inc", "corrida", "-n", "2")

	dir := t.TempDir()
	backupPath := filepath.Join(dir, "backup.json")
	assert.Equal(t, "exported to "+backupPath+"\n", mustRun(t, source, "export", "json", "-o", backupPath))

	target := kvstore.NewMemoryStore()
	assert.Equal(t, "backup imported\n", mustRun(t, target, "import", "json", backupPath))
	out := mustRun(t, target, "list")
	assert.Contains(t, out, "corrida")

	csvOut := mustRun(t, source, "export", "csv", "-o", "-")
	assert.True(t, strings.HasPrefix(csvOut, "Data,Exercício,Tipo,Exercícios Completos,Repetições,Total\n"))
	assert.Contains(t, csvOut, "15/03/2024,Corrida,💪,2,0,2.0\n")

	csvPath := filepath.Join(dir, "dados.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte(csvOut), 0o600))
	fresh := kvstore.NewMemoryStore()
	// corrida history row + one live counter row per exercise
	assert.Equal(t, "imported 6 records\n", mustRun(t, fresh, "import", "csv", csvPath))

	_, err := run(t, target, "export", "xml")
	assert.Error(t, err)
	_, err = run(t, target, "import", "json", filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}

func TestDataCommands(t *testing.T) {
	store := kvstore.NewMemoryStore()

	assert.Equal(t, "sample data loaded\n", mustRun(t, store, "sample"))
	out := mustRun(t, store, "summary")
	assert.Contains(t, out, "streak                 30")

	assert.Contains(t, mustRun(t, store, "usage"), " bytes (")

	_, err := run(t, store, "clear")
	assert.EqualError(t, err, "refusing to clear all data without --yes")
	assert.Equal(t, "all data cleared\n", mustRun(t, store, "clear", "--yes"))
	out = mustRun(t, store, "summary")
	assert.Contains(t, out, "streak                 0")
}

func TestFileStoreDefault(t *testing.T) {
	dataDir := t.TempDir()

	cmd := cli.NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"--data-dir", dataDir, "add", "Corrida"})
	require.NoError(t, cmd.Execute())

	exists, err := pkg.PathExists(filepath.Join(dataDir, tracker.ExercisesKey+".json"), false)
	require.NoError(t, err)
	assert.True(t, exists)

	archivePath := filepath.Join(t.TempDir(), "data.tar.gz")
	var out bytes.Buffer
	cmd = cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--data-dir", dataDir, "archive", "-o", archivePath})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "archived 3 files to "+archivePath+"\n", out.String())
}

func TestHashPassword(t *testing.T) {
	var out bytes.Buffer
	cmd := cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-password", "--cost", "4", "s3cret"})
	require.NoError(t, cmd.Execute())

	hash, ok := strings.CutPrefix(strings.TrimSpace(out.String()), "hash: ")
	require.True(t, ok)
	assert.True(t, pkg.CheckPasswordHash("s3cret", hash))

	out.Reset()
	cmd = cli.NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"hash-password", "--cost", "4", "--generate", "12"})
	require.NoError(t, cmd.Execute())
	assert.Regexp(t, `^password: \S{12}\nhash: \$2a\$04\$`, out.String())

	cmd = cli.NewRootCmd()
	cmd.SetOut(io.Discard)
	cmd.SetArgs([]string{"hash-password"})
	assert.Error(t, cmd.Execute())
}
