package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/balkashynov/murmur/internal/logger"
	"github.com/balkashynov/murmur/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the HTTP and WebSocket API",
	Long: `Run the recording session and enrichment workers behind an HTTP API.
Recordings saved through the API are enriched in the background.

Examples:
  murmur serve
  murmur serve --addr 0.0.0.0:9000`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		a, err := newApp(appOptions{logToStderr: true, autoEnrich: true})
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			return
		}
		defer a.close()

		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			a.cfg.Server.Addr = addr
		}

		ctx, stop := signal.NotifyContext(a.context(cmd.Context()), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := serve(ctx, a); err != nil {
			printErr(ctx, "Server stopped", err)
		}
	},
}

func serve(ctx context.Context, a *app) error {
	log := logger.WithField(a.log, "addr", a.cfg.Server.Addr)
	srv := server.New(a.cfg.Server.Addr, a.store, a.controller, a.pipeline, log.With("component", "server"))

	a.pipeline.Start(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("Shutting down")
		// Saves a recording still in progress before the workers stop
		err := a.controller.Shutdown(context.WithoutCancel(gctx))
		a.pipeline.Stop()
		return err
	})

	fmt.Printf("🎙  murmur listening on http://%s\n", a.cfg.Server.Addr)
	return g.Wait()
}

func init() {
	serveCmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
}
