package shell

import (
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"jcsh/internal/config"
	"jcsh/internal/proc"
	"jcsh/internal/spawn"

	"github.com/google/uuid"
)

// Shell is the state the execution core reports to: the environment, the
// last exit code, the exit request and the background job table.
type Shell struct {
	config *config.Config
	env    *Env
	jobs   *proc.Table

	lastExitCode int
	shouldExit   bool

	// stdin, stdout and stderr are inherited by children.
	stdin, stdout, stderr *os.File

	// out and errOut receive the shell's own output.
	out, errOut io.Writer

	terminal *spawn.Terminal
	log      *log.Logger
	logFile  *os.File
}

// Option configures a Shell.
type Option func(*Shell)

// WithEnv replaces the environment taken from the process.
func WithEnv(env *Env) Option {
	return func(s *Shell) { s.env = env }
}

// WithStdio sets the descriptors children inherit.
func WithStdio(stdin, stdout, stderr *os.File) Option {
	return func(s *Shell) { s.stdin, s.stdout, s.stderr = stdin, stdout, stderr }
}

// WithOutput sets where job listings and diagnostics are written.
func WithOutput(out, errOut io.Writer) Option {
	return func(s *Shell) { s.out, s.errOut = out, errOut }
}

// WithLogger sets the debug logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Shell) { s.log = l }
}

// New creates a shell from cfg.
func New(cfg *config.Config, opts ...Option) (*Shell, error) {
	s := &Shell{
		config: cfg,
		jobs:   proc.NewTable(),
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		out:    os.Stdout,
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.env == nil {
		dir, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("error getting current directory: %w", err)
		}
		s.env = NewEnv(os.Environ(), dir)
	}
	if _, ok := s.env.LookupEnv(EnvHome); !ok && cfg.HomeDir != "" {
		s.env.Setenv(EnvHome, cfg.HomeDir)
	}
	s.env.Setenv(EnvExitCode, "0")

	if s.log == nil {
		if err := s.openLog(); err != nil {
			return nil, fmt.Errorf("error opening debug log: %w", err)
		}
	}

	if cfg.JobControl {
		if t, ok := spawn.OpenTerminal(s.stdin); ok {
			s.terminal = t
		}
	}

	return s, nil
}

func (s *Shell) openLog() error {
	prefix := "jcsh[" + uuid.NewString()[:8] + "] "
	if s.config.DebugLog == "" {
		s.log = log.New(io.Discard, prefix, 0)
		return nil
	}
	f, err := os.OpenFile(s.config.DebugLog, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	s.logFile = f
	s.log = log.New(f, prefix, log.LstdFlags|log.Lmicroseconds)
	return nil
}

// Close releases the debug log.
func (s *Shell) Close() error {
	if s.logFile != nil {
		return s.logFile.Close()
	}
	return nil
}

// Env returns the shell environment.
func (s *Shell) Env() *Env {
	return s.env
}

// LastExitCode returns the exit code of the last foreground command.
func (s *Shell) LastExitCode() int {
	return s.lastExitCode
}

// Exit requests termination of the shell.
func (s *Shell) Exit() {
	s.shouldExit = true
}

// ShouldExit reports whether exit was requested.
func (s *Shell) ShouldExit() bool {
	return s.shouldExit
}

// Interactive reports whether the shell controls a terminal.
func (s *Shell) Interactive() bool {
	return s.terminal != nil
}

func (s *Shell) setExitCode(code int) {
	s.lastExitCode = code
	s.env.Setenv(EnvExitCode, strconv.Itoa(code))
}

// Diagnose prints a one line error message.
func (s *Shell) Diagnose(err error) {
	diagnose(s.errOut, err)
}

func diagnose(w io.Writer, err error) {
	fmt.Fprintf(w, "jcsh: %v\n", err)
}

// detach returns a copy of the shell for builtins run in the background:
// its environment and exit flag are private, the job table is shared.
func (s *Shell) detach() *Shell {
	return &Shell{
		config:       s.config,
		env:          s.env.Clone(),
		jobs:         s.jobs,
		lastExitCode: s.lastExitCode,
		stdin:        s.stdin,
		stdout:       s.stdout,
		stderr:       s.stderr,
		out:          s.out,
		errOut:       s.errOut,
		log:          s.log,
	}
}
