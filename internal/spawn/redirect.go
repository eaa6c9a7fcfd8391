package spawn

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"jcsh/internal/ast"

	"golang.org/x/sys/unix"
)

// OpenFlags returns the open(2) flags for a file redirection.
func OpenFlags(stream ast.Stream, mode ast.Mode) int {
	if stream == ast.Stdin {
		return os.O_RDONLY
	}
	flags := os.O_WRONLY | os.O_CREATE
	if mode == ast.Append {
		return flags | os.O_APPEND
	}
	return flags | os.O_TRUNC
}

// binding is what one standard stream of the child is connected to.
type binding struct {
	// file was opened by Resolve and is owned by the bindings.
	file *os.File

	// fd is a descriptor borrowed from the shell, or -1.
	fd int

	// std is the inherited standard stream this one follows, or -1.
	std int
}

var unbound = binding{fd: -1, std: -1}

func (b binding) isBound() bool {
	return b.file != nil || b.fd >= 0 || b.std >= 0
}

// Bindings holds at most one pending binding per standard stream.
type Bindings struct {
	streams [3]binding
}

func newBindings() *Bindings {
	return &Bindings{streams: [3]binding{unbound, unbound, unbound}}
}

// Resolve opens the files named by redirs, relative to dir. Later
// redirections of a stream replace earlier ones; the replaced file has
// still been opened (and created or truncated), as in other shells.
// Duplicating a standard stream (2>&1) copies its binding at that point of
// the sequence.
func Resolve(dir string, redirs []ast.Redirection) (*Bindings, error) {
	b := newBindings()
	for _, r := range redirs {
		if err := b.update(dir, r); err != nil {
			b.Close()
			return nil, err
		}
	}
	return b, nil
}

func (b *Bindings) update(dir string, r ast.Redirection) error {
	i := r.Stream.Fd()

	if fd, ok := r.Target.Descriptor(); ok {
		next := unbound
		switch {
		case fd > 2:
			next.fd = fd
		case b.streams[fd].file != nil:
			f, err := dupFile(b.streams[fd].file)
			if err != nil {
				return &Error{Op: "dup", Name: r.String(), Err: err}
			}
			next.file = f
		case b.streams[fd].isBound():
			next = b.streams[fd]
		default:
			next.std = fd
		}
		b.set(i, next)
		return nil
	}

	path, _ := r.Target.Path()
	if !filepath.IsAbs(path) {
		path = filepath.Join(dir, path)
	}
	f, err := os.OpenFile(path, OpenFlags(r.Stream, r.Mode), 0o644)
	if err != nil {
		return &Error{Op: "open", Name: path, Err: pathCause(err)}
	}
	b.set(i, binding{file: f, fd: -1, std: -1})
	return nil
}

func (b *Bindings) set(i int, next binding) {
	if f := b.streams[i].file; f != nil {
		f.Close()
	}
	b.streams[i] = next
}

func dupFile(f *os.File) (*os.File, error) {
	fd, err := unix.FcntlInt(f.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(fd), f.Name()), nil
}

// Bound reports whether a redirection applies to stream.
func (b *Bindings) Bound(stream ast.Stream) bool {
	return b.streams[stream.Fd()].isBound()
}

// Files returns the descriptor table of a child: bound descriptors where
// present, inherited ones otherwise.
func (b *Bindings) Files(inherited [3]uintptr) []uintptr {
	files := make([]uintptr, 3)
	for i, s := range b.streams {
		switch {
		case s.file != nil:
			files[i] = s.file.Fd()
		case s.fd >= 0:
			files[i] = uintptr(s.fd)
		case s.std >= 0:
			files[i] = inherited[s.std]
		default:
			files[i] = inherited[i]
		}
	}
	return files
}

// Writer returns where output for stream goes when a builtin runs inside
// the shell. std holds the shell's own streams indexed by descriptor.
func (b *Bindings) Writer(stream ast.Stream, std [3]io.Writer) io.Writer {
	switch s := b.streams[stream.Fd()]; {
	case s.file != nil:
		return s.file
	case s.fd >= 0:
		return fdWriter(s.fd)
	case s.std >= 0:
		return std[s.std]
	default:
		return std[stream.Fd()]
	}
}

// Close closes the files opened by Resolve.
func (b *Bindings) Close() error {
	var errs []error
	for i := range b.streams {
		if f := b.streams[i].file; f != nil {
			errs = append(errs, f.Close())
			b.streams[i] = unbound
		}
	}
	return errors.Join(errs...)
}

// pathCause strips the *fs.PathError wrapper, Error carries the path.
func pathCause(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}

// fdWriter writes to a descriptor the shell does not own.
type fdWriter int

func (w fdWriter) Write(p []byte) (int, error) {
	n, err := unix.Write(int(w), p)
	if err != nil {
		return 0, err
	}
	return n, nil
}
