package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/example/cafebook/internal/config"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type rootOptions struct {
	cfgFile  string
	logLevel string
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "cafebook",
		Short: "Drives the Pokémon Cafe reservation pages through to the final step",
		Long: `cafebook opens the Pokémon Cafe reservation site in Chrome and keeps
polling it: it agrees to the terms, rides out congestion, picks the guest
count, date and best time slot, and stops at the final step so you can
finish the booking yourself.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default is $HOME/.cafebook.yaml)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newRunsCmd(opts))
	root.AddCommand(newServerCmd(opts))
	root.AddCommand(newUserCmd(opts))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// load reads the config with any bound command-line flags layered on top
// and installs the logger it asks for.
func (o *rootOptions) load(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	v, err := config.New(o.cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	bind := map[string]string{"log_level": "log-level", "headless": "headless"}
	for key, name := range bind {
		if f := cmd.Flags().Lookup(name); f != nil {
			if err := v.BindPFlag(key, f); err != nil {
				return config.Config{}, nil, err
			}
		}
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return config.Config{}, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	slog.SetDefault(logger)
	if f := v.ConfigFileUsed(); f != "" {
		logger.Debug("using config file", "file", f)
	}
	return cfg, logger, nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var l slog.Level
	switch level {
	case "debug":
		l = slog.LevelDebug
	case "warn":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		l = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: l}))
}
