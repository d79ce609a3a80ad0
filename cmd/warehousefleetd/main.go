// Command warehousefleetd runs the warehouse fleet orchestrator: it loads
// configuration, connects the OrderStore and RouteOracle, brings up one
// RobotHandler per configured robot, and serves the HTTP query/write
// surface until interrupted.
//
// Structured as a Cobra root command with a "serve" subcommand, in the
// idiom of the teacher's robot_cli.go (rootCmd + init registering
// subcommands), adapted from an interactive REPL to a headless daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"warehousefleet/internal/api"
	"warehousefleet/internal/config"
	"warehousefleet/internal/controller"
	"warehousefleet/internal/fleet"
	"warehousefleet/internal/metrics"
	"warehousefleet/internal/obslog"
	"warehousefleet/internal/routeoracle"
	"warehousefleet/internal/store"
	"warehousefleet/internal/transport"
	"warehousefleet/internal/transport/simtransport"
	"warehousefleet/internal/types"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "warehousefleetd",
	Short: "Warehouse fleet orchestrator",
	Long: `warehousefleetd coordinates a fleet of warehouse robots: it accepts
job/request/warehouse orders over HTTP, dispatches them to the right robot,
and tracks derived order status in the OrderStore.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the orchestrator until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	loader, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg := loader.Current()

	log, err := obslog.New(cfg.Log)
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer log.Sync()

	rdb, err := store.Connect(ctx, store.ConnConfig{Addr: cfg.Store.Addr, Password: cfg.Store.Password, DB: cfg.Store.DB}, log)
	if err != nil {
		return fmt.Errorf("connect store: %w", err)
	}
	st := store.New(rdb, log)
	defer st.Close()

	oracle := routeoracle.NewClient(routeoracle.ClientConfig{
		BaseURL:        cfg.RouteOracle.BaseURL,
		APIKey:         cfg.RouteOracle.APIKey,
		DefaultGraph:   cfg.RouteOracle.DefaultGraph,
		RequestTimeout: time.Duration(cfg.RouteOracle.TimeoutMS) * time.Millisecond,
	}, log)
	if err := oracle.Connect(ctx); err != nil {
		return fmt.Errorf("connect route oracle: %w", err)
	}

	m := metrics.NewCollector(prometheus.DefaultRegisterer)
	updates := make(chan types.Job, 256)

	specs := make([]fleet.RobotSpec, 0, len(cfg.Robots))
	for _, rc := range cfg.Robots {
		specs = append(specs, fleet.RobotSpec{
			Name:        rc.Name,
			Transport:   newRobotTransport(rc, log),
			CellHeights: rc.CellHeights,
			StartTagID:  rc.StartTagID,
		})
	}
	fl := fleet.New(specs, oracle, cfg.RouteOracle.DefaultGraph, updates, m, log)
	defer fl.Shutdown()

	loader.WatchRobots(func(next []config.RobotConfig) {
		log.Info("config: robots changed, reconciling fleet", zap.Int("count", len(next)))
		nextSpecs := make([]fleet.RobotSpec, 0, len(next))
		for _, rc := range next {
			nextSpecs = append(nextSpecs, fleet.RobotSpec{
				Name:        rc.Name,
				Transport:   newRobotTransport(rc, log),
				CellHeights: rc.CellHeights,
				StartTagID:  rc.StartTagID,
			})
		}
		fl.ReconcileRobots(nextSpecs)
	})

	ctrl := controller.New(st, fl, oracle, cfg.RouteOracle.DefaultGraph, updates, log)
	defer ctrl.Shutdown()

	handler := api.New(ctrl, fl, st, log)
	router := api.NewRouter(handler)

	srv := &http.Server{Addr: cfg.ListenAddr, Handler: router}
	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newRobotTransport constructs the transport.Client for a configured robot.
// A real deployment would dial rc.Host:rc.Port over the robot's wire
// protocol; that adapter is out of scope here (SPEC_FULL.md §4.6), so every
// robot runs against the in-process simulator.
func newRobotTransport(rc config.RobotConfig, log *zap.Logger) transport.Client {
	log.Info("using simulated transport for robot", zap.String("robot", rc.Name), zap.String("host", rc.Host), zap.Int("port", rc.Port))
	return simtransport.New(rc.StartTagID)
}
