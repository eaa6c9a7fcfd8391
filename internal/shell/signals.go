package shell

import (
	"os"
	"os/signal"
	"syscall"
)

// HandleSignals keeps keyboard signals from terminating the shell while it
// waits on a foreground job. They are caught rather than ignored so that
// children, which get default dispositions on exec, still receive them from
// the terminal. The returned function restores the defaults.
func (s *Shell) HandleSignals() (stop func()) {
	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTSTP)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case sig := <-signalChan:
				s.log.Printf("received %v", sig)
			case <-done:
				return
			}
		}
	}()

	return func() {
		signal.Stop(signalChan)
		close(done)
	}
}
