package main

import (
	"fmt"
	"os"
	"path/filepath"

	"jcsh/internal/config"
	"jcsh/internal/repl"
	"jcsh/internal/shell"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	command string
)

var rootCmd = &cobra.Command{
	Use:   "jcsh",
	Short: "A small job-control shell",
	Long: `jcsh runs simple commands with redirections in the foreground or,
with a trailing &, in the background, and tracks them as jobs.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := run()
		if err != nil {
			return err
		}
		os.Exit(code)
		return nil
	},
}

func run() (int, error) {
	if cfgPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return 1, err
		}
		cfgPath = filepath.Join(home, ".jcsh.yml")
	}

	cfg, err := config.Load(afero.NewOsFs(), cfgPath)
	if err != nil {
		return 1, fmt.Errorf("error loading config: %w", err)
	}

	s, err := shell.New(cfg)
	if err != nil {
		return 1, fmt.Errorf("error initializing shell: %w", err)
	}
	defer s.Close()

	if command != "" {
		if err := repl.Eval(s, command); err != nil {
			s.Diagnose(err)
			return 1, nil
		}
		return s.LastExitCode(), nil
	}
	return repl.Run(s, cfg)
}

func init() {
	rootCmd.Flags().StringVar(&cfgPath, "config", "", "config file (default $HOME/.jcsh.yml)")
	rootCmd.Flags().StringVarP(&command, "command", "c", "", "run a single command and exit")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jcsh: %v\n", err)
		os.Exit(1)
	}
}
