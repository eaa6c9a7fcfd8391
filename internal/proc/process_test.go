package proc

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

// Linux wait status encodings.
func exitedWS(code int) unix.WaitStatus { return unix.WaitStatus(code << 8) }
func signaledWS(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(sig) }
func stoppedWS(sig unix.Signal) unix.WaitStatus { return unix.WaitStatus(0x7f | int(sig)<<8) }

const continuedWS = unix.WaitStatus(0xffff)

type waitResult struct {
	pid int
	ws  unix.WaitStatus
	err error
}

// stubWait replays results and records the options of each call.
type stubWait struct {
	results []waitResult
	options []int
}

func (s *stubWait) wait4(pid int, ws *unix.WaitStatus, options int, _ *unix.Rusage) (int, error) {
	s.options = append(s.options, options)
	r := s.results[0]
	s.results = s.results[1:]
	*ws = r.ws
	return r.pid, r.err
}

func stubbed(results ...waitResult) (*External, *stubWait) {
	stub := &stubWait{results: results}
	p := NewExternal(10, "prog")
	p.wait4 = stub.wait4
	return p, stub
}

func TestExternalWait(t *testing.T) {
	cases := []struct {
		name   string
		ws     unix.WaitStatus
		status Status
		shell  int
	}{
		{"exit 0", exitedWS(0), Done, 0},
		{"exit 3", exitedWS(3), Done, 3},
		{"killed", signaledWS(unix.SIGKILL), Killed, 137},
		{"stopped", stoppedWS(unix.SIGTSTP), Stopped, 128 + int(unix.SIGTSTP)},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, stub := stubbed(waitResult{pid: 10, ws: tc.ws})

			status, err := p.Wait(true)
			require.NoError(t, err)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.status, p.Status())
			assert.Equal(t, []int{unix.WUNTRACED}, stub.options)

			exit, ok := p.ExitStatus()
			require.True(t, ok)
			assert.Equal(t, tc.shell, exit.ShellCode())
		})
	}
}

func TestExternalWaitNonBlocking(t *testing.T) {
	p, stub := stubbed(
		waitResult{pid: 0},
		waitResult{pid: 10, ws: stoppedWS(unix.SIGSTOP)},
		waitResult{pid: 10, ws: continuedWS},
	)

	status, err := p.Wait(false)
	require.NoError(t, err)
	assert.Equal(t, Running, status, "no change reported")
	assert.Equal(t, unix.WUNTRACED|unix.WNOHANG|unix.WCONTINUED, stub.options[0])

	status, err = p.Wait(false)
	require.NoError(t, err)
	assert.Equal(t, Stopped, status)

	status, err = p.Wait(false)
	require.NoError(t, err)
	assert.Equal(t, Running, status, "continued")
}

func TestExternalWaitIsIdempotentOnceFinished(t *testing.T) {
	p, stub := stubbed(waitResult{pid: 10, ws: exitedWS(1)})

	_, err := p.Wait(true)
	require.NoError(t, err)
	status, err := p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, Done, status)
	assert.Len(t, stub.options, 1)
}

func TestExternalWaitRetriesEINTR(t *testing.T) {
	p, stub := stubbed(
		waitResult{pid: -1, err: unix.EINTR},
		waitResult{pid: 10, ws: exitedWS(0)},
	)

	status, err := p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, Done, status)
	assert.Len(t, stub.options, 2)
}

func TestExternalWaitError(t *testing.T) {
	p, _ := stubbed(waitResult{pid: -1, err: unix.ECHILD})

	status, err := p.Wait(false)
	assert.ErrorIs(t, err, unix.ECHILD)
	assert.Equal(t, Running, status)
}

func TestExternalWaitRealChild(t *testing.T) {
	cmd := exec.Command("sh", "-c", "exit 4")
	require.NoError(t, cmd.Start())

	p := NewExternal(cmd.Process.Pid, "sh")
	status, err := p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, Done, status)

	exit, ok := p.ExitStatus()
	require.True(t, ok)
	code, ok := exit.Code()
	assert.True(t, ok)
	assert.Equal(t, 4, code)
}

func TestInternal(t *testing.T) {
	p := NewInternal("cd", 1)
	assert.Equal(t, Done, p.Status())
	assert.Equal(t, "cd", p.Name())

	status, err := p.Wait(true)
	require.NoError(t, err)
	assert.Equal(t, Done, status)

	exit, ok := p.ExitStatus()
	require.True(t, ok)
	assert.Equal(t, 1, exit.ShellCode())

	assert.Panics(t, func() { p.Pid() })
}

func TestStatusOf(t *testing.T) {
	assert.Equal(t, Running, StatusOf(ExitStatus{}, false))
	assert.Equal(t, Done, StatusOf(Exited(2), true))
	assert.Equal(t, Killed, StatusOf(Signaled(9), true))
	assert.Equal(t, Stopped, StatusOf(StoppedBy(19), true))

	assert.True(t, Done.IsFinished())
	assert.True(t, Killed.IsFinished())
	assert.False(t, Running.IsFinished())
	assert.False(t, Stopped.IsFinished())
}

func TestExitStatusString(t *testing.T) {
	assert.Equal(t, "exit status 2", Exited(2).String())
	assert.Equal(t, "killed by SIGKILL", Signaled(int(unix.SIGKILL)).String())
	assert.Equal(t, "stopped by SIGTSTP", StoppedBy(int(unix.SIGTSTP)).String())
}
