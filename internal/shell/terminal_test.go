package shell

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"

	"jcsh/internal/config"
	"jcsh/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// sessionHelperEnv names the working directory of the re-executed test
// binary acting as an interactive shell on a pty.
const sessionHelperEnv = "JCSH_SESSION_HELPER"

func TestMain(m *testing.M) {
	if dir := os.Getenv(sessionHelperEnv); dir != "" {
		msg := "ok"
		if err := interactiveSession(dir); err != nil {
			msg = err.Error()
		}
		os.WriteFile(filepath.Join(dir, "result"), []byte(msg), 0o644)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// interactiveSession runs one foreground command the way -c does, without
// the read loop.
func interactiveSession(dir string) error {
	env := NewEnv(os.Environ(), dir)
	sh, err := New(&config.Config{JobControl: true}, WithEnv(env), WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		return err
	}
	if !sh.Interactive() {
		return errors.New("shell did not take the terminal")
	}
	stop := sh.HandleSignals()
	defer stop()

	cmd, err := parser.Parse("grep SigIgn /proc/self/status > status.txt", env.Environ())
	if err != nil {
		return err
	}
	code, ok, err := sh.Execute(cmd)
	if err != nil {
		return err
	}
	if !ok || code != 0 {
		return fmt.Errorf("grep: code %d, ok %t", code, ok)
	}

	fg, err := unix.IoctlGetInt(int(os.Stdin.Fd()), unix.TIOCGPGRP)
	if err != nil {
		return err
	}
	if fg != unix.Getpgrp() {
		return fmt.Errorf("terminal foreground group %d, want %d", fg, unix.Getpgrp())
	}
	return nil
}

func openPty() (master, slave *os.File, err error) {
	master, err = os.OpenFile("/dev/ptmx", os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, nil, err
	}
	if err := unix.IoctlSetPointerInt(int(master.Fd()), unix.TIOCSPTLCK, 0); err != nil {
		master.Close()
		return nil, nil, err
	}
	n, err := unix.IoctlGetInt(int(master.Fd()), unix.TIOCGPTN)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	slave, err = os.OpenFile("/dev/pts/"+strconv.Itoa(n), os.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		master.Close()
		return nil, nil, err
	}
	return master, slave, nil
}

func sigIgn(t *testing.T, status string) uint64 {
	t.Helper()
	for _, line := range strings.Split(status, "\n") {
		if v, ok := strings.CutPrefix(line, "SigIgn:"); ok {
			mask, err := strconv.ParseUint(strings.TrimSpace(v), 16, 64)
			require.NoError(t, err)
			return mask
		}
	}
	t.Fatalf("no SigIgn line in %q", status)
	return 0
}

func TestInteractiveForegroundJob(t *testing.T) {
	own, err := os.ReadFile("/proc/self/status")
	if err != nil {
		t.Skipf("no procfs: %v", err)
	}
	stopSignals := uint64(1)<<(unix.SIGTTIN-1) | uint64(1)<<(unix.SIGTTOU-1)
	if sigIgn(t, string(own))&stopSignals != 0 {
		t.Skip("test process already ignores SIGTTIN or SIGTTOU")
	}

	master, slave, err := openPty()
	if err != nil {
		t.Skipf("no pty: %v", err)
	}
	defer master.Close()
	defer slave.Close()
	go io.Copy(io.Discard, master)

	dir := t.TempDir()
	cmd := exec.Command(os.Args[0], "-test.run=^$")
	cmd.Env = append(os.Environ(), sessionHelperEnv+"="+dir)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = slave, slave, slave
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true, Setctty: true, Ctty: 0}
	require.NoError(t, cmd.Run())

	assert.Equal(t, "ok", readFile(t, filepath.Join(dir, "result")), "shell took the terminal back")
	assert.Zero(t, sigIgn(t, readFile(t, filepath.Join(dir, "status.txt")))&stopSignals,
		"children start with default job control signal dispositions")
}
