package spawn

import (
	"os"
	"runtime"

	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// Terminal is the controlling terminal the shell hands to foreground jobs.
type Terminal struct {
	fd int
}

// OpenTerminal returns the terminal behind f, or false if f is not one.
func OpenTerminal(f *os.File) (*Terminal, bool) {
	fd := int(f.Fd())
	if !term.IsTerminal(fd) {
		return nil, false
	}
	return &Terminal{fd: fd}, true
}

// Fd returns the terminal descriptor, for Spec.Terminal.
func (t *Terminal) Fd() int {
	return t.fd
}

// Reclaim makes the shell's process group the terminal foreground group
// again. The shell is in a background group at that point, so SIGTTOU is
// blocked on the calling thread for the duration of the ioctl; the signal
// disposition itself is left alone and children inherit the default.
func (t *Terminal) Reclaim() error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	var block, old unix.Sigset_t
	block.Val[0] = 1 << (uint(unix.SIGTTOU) - 1)
	if err := unix.PthreadSigmask(unix.SIG_BLOCK, &block, &old); err != nil {
		return err
	}
	defer unix.PthreadSigmask(unix.SIG_SETMASK, &old, nil)

	return unix.IoctlSetPointerInt(t.fd, unix.TIOCSPGRP, unix.Getpgrp())
}
