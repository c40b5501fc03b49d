package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moesafa-mgf/genie-haus/internal/httpapi"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the workspace state API over HTTP",
		Long: "Serve /api/workspace-state and /api/staff from the configured backend\n" +
			"until interrupted. Widgets and \"--backend http\" clients talk to it.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(cmd)
			if err != nil {
				return err
			}
			if listen == "" {
				listen = settings.Listen
			}
			log, err := newLogger(settings, true)
			if err != nil {
				return err
			}
			defer log.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			st, err := openStore(ctx, settings, log)
			if err != nil {
				return err
			}
			defer st.close()

			api := httpapi.NewServer(st.remote, st.staff,
				httpapi.WithLogger(log),
				httpapi.WithAllowedOrigins(settings.AllowedOrigins...),
			)
			ln, err := net.Listen("tcp", listen)
			if err != nil {
				return sysError("listen %s: %w", listen, err)
			}
			srv := &http.Server{
				Handler:           api,
				ReadHeaderTimeout: 10 * time.Second,
				BaseContext:       func(net.Listener) context.Context { return ctx },
			}
			log.Info("server started",
				zap.String("addr", ln.Addr().String()),
				zap.String("backend", settings.Store.Backend),
			)
			if err := runServer(ctx, srv, ln, log); err != nil {
				return sysError("serve: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "address to listen on (default server.listen)")
	return cmd
}

// runServer serves on ln until ctx is done, then shuts srv down gracefully.
func runServer(ctx context.Context, srv *http.Server, ln net.Listener, log *zap.Logger) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
