package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ludafarma/dbgate/internal/config"
	"github.com/ludafarma/dbgate/internal/facade"
	"github.com/ludafarma/dbgate/pkg/health"
	"github.com/ludafarma/dbgate/pkg/logger"
)

var (
	configPath     = flag.String("config", "dbgate.yaml", "Path to the logical database configuration file")
	checkInterval  = flag.Duration("check-interval", 30*time.Second, "Interval between connection health checks")
	checkOnce      = flag.Bool("check", false, "Probe every configured database once and exit")
	serviceVersion = "1.0.0"
)

func main() {
	flag.Parse()

	log := logger.New("dbgate", serviceVersion)

	configs, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	controller := facade.NewController(configs, facade.WithControllerLogger(log))
	gate, err := controller.Facade()
	if err != nil {
		log.Fatalf("Failed to build access layer: %v", err)
	}

	for _, info := range gate.ListDatabases() {
		if info.IsDefault {
			log.Infof("Registered %s database %s (default)", info.Engine, info.Name)
		} else {
			log.Infof("Registered %s database %s", info.Engine, info.Name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker()
	runChecks := func() {
		for _, info := range gate.ListDatabases() {
			name := info.Name
			checker.RunCheck(name, func() error {
				if !gate.TestConnection(ctx, name) {
					return &unreachableError{name: name}
				}
				return nil
			})
		}
		log.Infof("Health: %s", checker.GetOverallStatus())
	}

	runChecks()
	if *checkOnce {
		shutdown(gate, log)
		if checker.GetOverallStatus() != health.StatusHealthy {
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(*checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			runChecks()
		case <-ctx.Done():
			log.Info("Shutting down")
			shutdown(gate, log)
			return
		}
	}
}

func shutdown(gate *facade.Facade, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gate.CloseAll(ctx); err != nil {
		log.Errorf("Error during shutdown: %v", err)
	}
}

type unreachableError struct {
	name string
}

func (e *unreachableError) Error() string {
	return "database " + e.name + " is unreachable"
}
