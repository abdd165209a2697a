package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/throttled/ratefunc"
	"github.com/throttled/ratefunc/internal/config"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve HTTP requests behind a throttle",
		Long: `Start an HTTP server that answers at most one request per key and
cooldown; other requests get 429 Too Many Requests. server.vary_by picks the
key: path, remote_addr, host, method or none (one key for all requests).

Ctrl+C (SIGINT) or SIGTERM shuts the server down gracefully.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, closeStore, err := openStore(a.cfg.Store, a.log)
			if err != nil {
				return err
			}
			defer closeQuietly(a.log, closeStore)

			h, err := newServeHandler(a.cfg, a.log, st)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a.log, &http.Server{Addr: a.cfg.Server.Addr, Handler: h}, a.cfg.Server.ShutdownTimeout)
		},
	}
	cmd.Flags().String("addr", ":9000", "listen address")
	cmd.Flags().Duration("cooldown", 500*time.Millisecond, "window after a served request during which its key is denied")
	bindFlag(cmd.Flags(), "addr", "server.addr")
	bindFlag(cmd.Flags(), "cooldown", "throttle.cooldown")
	return cmd
}

func newServeHandler(cfg *config.Config, log *zap.Logger, st ratefunc.CooldownStore) (http.Handler, error) {
	start := time.Now()
	t := &ratefunc.HTTPThrottler{
		Cooldown: ratefunc.Delay(cfg.Throttle.Cooldown),
		MaxKeys:  cfg.Throttle.MaxKeys,
		VaryBy:   varyBy(cfg.Server.VaryBy),
		Error: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Error("throttle failed", zap.String("path", r.URL.Path), zap.Error(err))
			ratefunc.DefaultError(w, r, err)
		},
		Options: append([]ratefunc.Option{ratefunc.WithLogger(log)}, storeOptions(st, "serve")...),
	}
	return t.Throttle(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
		fmt.Fprintln(w, "ok")
	}))
}

func varyBy(name string) *ratefunc.VaryBy {
	switch name {
	case "path":
		return &ratefunc.VaryBy{Path: true}
	case "remote_addr":
		return &ratefunc.VaryBy{RemoteAddr: true}
	case "host":
		return &ratefunc.VaryBy{Host: true}
	case "method":
		return &ratefunc.VaryBy{Method: true}
	}
	return nil
}

// serve runs srv until ctx is done, then shuts it down, waiting at most
// timeout for open requests.
func serve(ctx context.Context, log *zap.Logger, srv *http.Server, timeout time.Duration) error {
	errc := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return errors.Wrap(err, "serve")
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.Wrap(err, "shutdown")
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
