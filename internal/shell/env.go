package shell

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	EnvHome     = "HOME"
	EnvPWD      = "PWD"
	EnvOldPWD   = "OLDPWD"
	EnvExitCode = "?"
)

// Env is the shell's variable table and working directory. Children get
// the working directory and exported variables explicitly at spawn time;
// the Go process's own environment and directory are never changed.
type Env struct {
	vars map[string]string
	dir  string
}

// NewEnv creates an environment from KEY=value pairs rooted at dir.
func NewEnv(environ []string, dir string) *Env {
	e := &Env{vars: make(map[string]string), dir: filepath.Clean(dir)}
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		if key != "" {
			e.vars[key] = value
		}
	}
	e.vars[EnvPWD] = e.dir
	return e
}

// LookupEnv returns the value of key and whether it is set.
func (e *Env) LookupEnv(key string) (string, bool) {
	v, ok := e.vars[key]
	return v, ok
}

// Getenv returns the value of key, or "" if unset.
func (e *Env) Getenv(key string) string {
	return e.vars[key]
}

// Setenv sets key to value.
func (e *Env) Setenv(key, value string) {
	e.vars[key] = value
}

// Unsetenv removes key.
func (e *Env) Unsetenv(key string) {
	delete(e.vars, key)
}

// Environ returns every variable, $? included, sorted by name.
func (e *Env) Environ() []string {
	env := make([]string, 0, len(e.vars))
	for k, v := range e.vars {
		env = append(env, k+"="+v)
	}
	sort.Strings(env)
	return env
}

// Exported returns the variables passed to children.
func (e *Env) Exported() []string {
	env := make([]string, 0, len(e.vars))
	for _, kv := range e.Environ() {
		if !strings.HasPrefix(kv, EnvExitCode+"=") {
			env = append(env, kv)
		}
	}
	return env
}

// Dir returns the working directory.
func (e *Env) Dir() string {
	return e.dir
}

// Chdir changes the working directory to dir, relative to the current one.
// OLDPWD is set to the directory being left, just before the change.
func (e *Env) Chdir(dir string) error {
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(e.dir, dir)
	}
	dir = filepath.Clean(dir)

	fi, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !fi.IsDir() {
		return fmt.Errorf("%s: not a directory", dir)
	}

	e.vars[EnvOldPWD] = e.dir
	e.dir = dir
	e.vars[EnvPWD] = dir
	return nil
}

// Clone returns an independent copy.
func (e *Env) Clone() *Env {
	c := &Env{vars: make(map[string]string, len(e.vars)), dir: e.dir}
	for k, v := range e.vars {
		c.vars[k] = v
	}
	return c
}
