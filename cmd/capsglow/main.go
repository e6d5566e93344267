// Command capsglow shows an on-screen indicator while Caps Lock is on.
package main

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/phinze/capsglow/internal/autostart"
	"github.com/phinze/capsglow/internal/config"
)

// Set by the linker.
var version = "dev"

type options struct {
	configPath string
	logFile    string
	debug      bool
	noUIAccess bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "capsglow",
		Short:         "Show an overlay while Caps Lock is on",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndicator(opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "path to CapsGlow.ini (default: next to the executable)")
	cmd.Flags().StringVar(&opts.logFile, "log-file", "", `log file path, "-" for stderr (default: capsglow.log beside the config)`)
	cmd.Flags().BoolVar(&opts.debug, "debug", false, "log every key event and show cycle")
	cmd.Flags().BoolVar(&opts.noUIAccess, "no-uiaccess", false, "never try to acquire UIAccess")

	cmd.AddCommand(newVersionCmd(), newAutostartCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "capsglow %s\n", version)
		},
	}
}

func newAutostartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "autostart",
		Short: "Manage starting CapsGlow at logon",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "enable",
			Short: "Start CapsGlow at logon",
			RunE: func(cmd *cobra.Command, args []string) error {
				return errors.Wrap(autostart.Enable(), "failed to enable autostart")
			},
		},
		&cobra.Command{
			Use:   "disable",
			Short: "Stop starting CapsGlow at logon",
			RunE: func(cmd *cobra.Command, args []string) error {
				return errors.Wrap(autostart.Disable(), "failed to disable autostart")
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Report whether CapsGlow starts at logon",
			RunE: func(cmd *cobra.Command, args []string) error {
				on, err := autostart.Enabled()
				if err != nil {
					return errors.Wrap(err, "failed to read autostart")
				}
				state := "disabled"
				if on {
					state = "enabled"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "autostart %s\n", state)
				return nil
			},
		},
	)
	return cmd
}

// setupLogging points the standard logger at logFile. An empty logFile
// means capsglow.log in dir; "-" keeps stderr.
func setupLogging(logFile, dir string) (io.Closer, error) {
	if logFile == "-" {
		return io.NopCloser(nil), nil
	}
	if logFile == "" {
		logFile = filepath.Join(dir, "capsglow.log")
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create log directory")
	}

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s", logFile)
	}
	log.SetOutput(f)
	return f, nil
}

func configPath(opts options) string {
	if opts.configPath != "" {
		return opts.configPath
	}
	return config.DefaultPath()
}

// loadConfig loads the settings and applies command-line overrides. A config
// file that cannot be parsed falls back to defaults so the indicator still
// runs; Save then refuses to overwrite it.
func loadConfig(path string, opts options) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		log.Printf("Using default settings: %v", err)
		cfg = config.Defaults(path)
	}
	if opts.debug {
		cfg.Debug = true
	}
	if opts.noUIAccess {
		cfg.UIAccess = false
	}
	return cfg
}
