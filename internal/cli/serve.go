package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"asamanthinks/internal/app"
	"asamanthinks/internal/httpapi"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the session API over HTTP",
		Long: `Start an HTTP server exposing one in-memory session. Remote objects
created during the session are released on shutdown.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cfg, err := opts.build(ctx, app.Options{})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.ListenAddr
			}

			srv, err := httpapi.NewServer(httpapi.Deps{
				Session:  a.Session,
				Recorder: a.Recorder,
				Chunks:   a.Device,
				Log:      a.Log,
			})
			if err != nil {
				return err
			}
			runErr := srv.Run(ctx, addr)

			// ctx is already cancelled here.
			report := a.Session.ReleaseObjects(context.WithoutCancel(cmd.Context()))
			a.Log.Info("session closed", "released", report.Deleted, "failed", len(report.Failed))
			return runErr
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address; overrides LISTEN_ADDR")
	return cmd
}
