package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/example/cafebook/internal/auth"
	"github.com/example/cafebook/internal/runs"
	"github.com/example/cafebook/internal/web"
)

func newServerCmd(opts *rootOptions) *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Serve the run journal web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load(cmd)
			if err != nil {
				return err
			}
			if err := cfg.RequireWeb(); err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			d, err := openDB(ctx, cfg, migrateUp)
			if err != nil {
				return err
			}
			defer d.Close()

			ws := &web.Server{
				Auth:   auth.NewStore(auth.NewDBUsers(d), cfg.CookieHashKey, cfg.CookieBlockKey),
				Runs:   runs.NewRepo(d),
				Logger: logger.With("component", "web"),
			}
			return web.Start(ctx, cfg.ListenAddr, ws.Routes(), ws.Logger)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")

	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
