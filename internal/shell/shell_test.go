package shell

import (
	"bytes"
	"io"
	"log"
	"os"
	"testing"

	"jcsh/internal/config"
	"jcsh/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

type testShell struct {
	*Shell
	dir    string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newTestShell(t *testing.T) *testShell {
	t.Helper()

	dir := t.TempDir()
	env := NewEnv(os.Environ(), dir)
	env.Setenv(EnvHome, dir)
	env.Unsetenv(EnvOldPWD)

	ts := &testShell{dir: dir, out: &bytes.Buffer{}, errOut: &bytes.Buffer{}}
	sh, err := New(&config.Config{JobControl: false},
		WithEnv(env),
		WithOutput(ts.out, ts.errOut),
		WithLogger(log.New(io.Discard, "", 0)),
	)
	require.NoError(t, err)
	ts.Shell = sh

	t.Cleanup(func() {
		for _, j := range sh.Jobs() {
			if j.Pgid > 0 {
				unix.Kill(-j.Pgid, unix.SIGKILL)
			}
		}
		sh.Close()
	})
	return ts
}

// run parses and executes line.
func (ts *testShell) run(t *testing.T, line string) (int, bool) {
	t.Helper()
	cmd, err := parser.Parse(line, ts.env.Environ())
	require.NoError(t, err)
	code, ok, err := ts.Execute(cmd)
	require.NoError(t, err)
	return code, ok
}

func TestShellInitialization(t *testing.T) {
	cfg := &config.Config{HomeDir: "/home/jc"}
	env := NewEnv([]string{"PATH=/bin"}, t.TempDir())
	sh, err := New(cfg, WithEnv(env), WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)
	require.NotNil(t, sh)

	assert.Equal(t, 0, sh.LastExitCode())
	assert.False(t, sh.ShouldExit())
	assert.False(t, sh.Interactive())
	assert.Equal(t, 0, sh.JobCount())
	assert.Equal(t, "/home/jc", sh.Env().Getenv(EnvHome))

	code, ok := sh.Env().LookupEnv(EnvExitCode)
	assert.True(t, ok)
	assert.Equal(t, "0", code)
}

func TestShellKeepsHome(t *testing.T) {
	env := NewEnv([]string{"HOME=/root"}, t.TempDir())
	sh, err := New(&config.Config{HomeDir: "/home/jc"}, WithEnv(env), WithLogger(log.New(io.Discard, "", 0)))
	require.NoError(t, err)
	assert.Equal(t, "/root", sh.Env().Getenv(EnvHome))
}

func TestShellDebugLog(t *testing.T) {
	path := t.TempDir() + "/debug.log"
	env := NewEnv(os.Environ(), t.TempDir())
	sh, err := New(&config.Config{DebugLog: path}, WithEnv(env))
	require.NoError(t, err)

	cmd, err := parser.Parse("true", env.Environ())
	require.NoError(t, err)
	_, _, err = sh.Execute(cmd)
	require.NoError(t, err)
	require.NoError(t, sh.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "jcsh[")
	assert.Contains(t, string(data), "started pid")
}

func TestDiagnose(t *testing.T) {
	ts := newTestShell(t)
	ts.Diagnose(&BuiltinError{Name: "cd", Err: ErrTooManyArgs})
	assert.Equal(t, "jcsh: cd: too many arguments\n", ts.errOut.String())
}

func TestDetach(t *testing.T) {
	ts := newTestShell(t)
	d := ts.detach()

	d.env.Setenv("ONLY_DETACHED", "1")
	d.Exit()

	_, ok := ts.env.LookupEnv("ONLY_DETACHED")
	assert.False(t, ok)
	assert.False(t, ts.ShouldExit())
	assert.Same(t, ts.jobs, d.jobs)
}

func TestHandleSignals(t *testing.T) {
	ts := newTestShell(t)
	stop := ts.HandleSignals()
	code, _ := ts.run(t, "true")
	assert.Equal(t, 0, code)
	stop()
}
