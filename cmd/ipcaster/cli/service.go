package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ipcaster/internal/api"
	"ipcaster/internal/config"
	"ipcaster/internal/supervisor"
	"ipcaster/pkg/muxer"
)

var servicePort int

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Run as a long-lived service with a REST facade for managing streams",
	RunE:  runService,
}

func init() {
	serviceCmd.Flags().IntVarP(&servicePort, "port", "p", 0, "HTTP listening port (overrides config file)")
}

// runService starts the muxer and supervisor in server mode, mounts the
// REST facade, and blocks until SIGINT/SIGTERM. Shutdown is coordinated
// with an errgroup, grounded on zsiec-prism's cmd/prism/main.go: a signal
// goroutine cancels the shared context, the supervisor's Run loop returns
// on ctx.Done() after deleting every stream, and the muxer is closed on
// return. The REST facade's listener is not shut down explicitly.
func runService(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadConfig("configs/default.yaml")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.Flags().Changed("port") {
		cfg.API.Port = servicePort
	}

	mux, err := muxer.New(cfg.Muxer.BurstPeriod, cfg.Muxer.Preroll)
	if err != nil {
		return fmt.Errorf("open muxer: %w", err)
	}
	defer mux.Close()

	sup := supervisor.New(mux, true)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("service: received signal, shutting down", "signal", sig)
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)

	if cfg.API.Enabled {
		server := api.NewServer(strconv.Itoa(cfg.API.Port), sup)
		server.Start()
		slog.Info("service: REST facade listening", "port", cfg.API.Port)
	}

	g.Go(func() error {
		return sup.Run(ctx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	return nil
}
