package config

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	// DefaultPrompt shows the working directory, "~" for home.
	DefaultPrompt = `\w $ `

	// HistoryName is the history file kept in the home directory when none
	// is configured.
	HistoryName = ".jcsh_history"
)

// Config is the shell configuration. JobControl hands the terminal to
// foreground jobs when stdin is one.
type Config struct {
	HistoryFile string `yaml:"history_file" validate:"required"`
	HomeDir     string `yaml:"home_dir" validate:"required"`
	Prompt      string `yaml:"prompt" validate:"required"`
	JobControl  bool   `yaml:"job_control"`
	DebugLog    string `yaml:"debug_log"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Prompt:     DefaultPrompt,
		JobControl: true,
	}
}

// Validate the configuration for basic semantic errors.
func (c *Config) Validate() error {
	validate := validator.New()
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		return strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
	})

	return validate.Struct(c)
}
