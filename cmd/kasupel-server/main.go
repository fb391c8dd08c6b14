// Command kasupel-server runs the Kasupel matchmaking and live-play API:
// a fiber-based REST surface alongside a plain net/http websocket
// listener, backed by a single sqlite database.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kasupel/server/cmd/kasupel-server/cli"
	"github.com/kasupel/server/internal/account"
	"github.com/kasupel/server/internal/hub"
	"github.com/kasupel/server/internal/httpapi"
	"github.com/kasupel/server/internal/matchmaker"
	"github.com/kasupel/server/internal/notify"
	"github.com/kasupel/server/internal/session"
	"github.com/kasupel/server/internal/storage"
)

const gracefulShutdownTimeout = 5 * time.Second

// sweepInterval is how often the registry is swept for clocks that ran
// out while nobody was connected to notice, per spec §5.
const sweepInterval = time.Second

func main() {
	if len(os.Args) > 1 && os.Args[1] == "db" {
		if err := cli.Run(os.Args[2:]); err != nil {
			log.Fatalf("db command failed: %v", err)
		}
		return
	}

	var (
		apiHost     = flag.String("api-host", "localhost", "API server host")
		apiPort     = flag.Int("api-port", 8080, "API server port")
		socketPort  = flag.Int("socket-port", 8081, "Websocket server port")
		dev         = flag.Bool("dev", false, "Development mode (relaxed rate limits, verbose logging)")
		storagePath = flag.String("storage-path", "kasupel.db", "Path to the SQLite database file")
		pidPath     = flag.String("pid", "", "Optional path to write a PID file")
		pidLock     = flag.Bool("pid-lock", false, "Lock the PID file to allow only one instance (requires -pid)")
	)
	flag.Parse()

	if *pidLock && *pidPath == "" {
		log.Fatal("-pid-lock requires -pid")
	}
	if *pidPath != "" {
		cleanup, err := managePIDFile(*pidPath, *pidLock)
		if err != nil {
			log.Fatalf("pid file: %v", err)
		}
		defer cleanup()
	}

	var logger *zap.Logger
	var err error
	if *dev {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	store, err := storage.NewStore(*storagePath, *dev)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err))
	}
	if err := store.InitDB(); err != nil {
		logger.Fatal("init schema", zap.Error(err))
	}
	defer store.Close()

	accounts := account.New(store, nil)
	sessions := session.New(store)
	notifyQ := notify.New(store, nil)
	registry := hub.NewRegistry(store, accounts, accounts, notifyQ, logger)
	notifyQ.SetSocket(registry)
	matcher := matchmaker.New(store, store, notifyQ, registry)

	envelope, err := httpapi.NewEnvelope()
	if err != nil {
		logger.Fatal("generate endpoint-encryption key", zap.Error(err))
	}
	handler := httpapi.NewHandler(accounts, sessions, notifyQ, matcher, registry, store, envelope, logger)
	app := httpapi.NewFiberApp(handler, *dev)

	sweepCtx, sweepCancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				registry.SweepTimeouts()
			}
		}
	}()

	apiAddr := fmt.Sprintf("%s:%d", *apiHost, *apiPort)
	go func() {
		logger.Info("api listening", zap.String("addr", apiAddr))
		if err := app.Listen(apiAddr); err != nil {
			logger.Error("api server exited", zap.Error(err))
		}
	}()

	socketAddr := fmt.Sprintf("%s:%d", *apiHost, *socketPort)
	socketServer := &http.Server{Addr: socketAddr, Handler: handler.SocketMux()}
	go func() {
		logger.Info("socket listening", zap.String("addr", socketAddr))
		if err := socketServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("socket server exited", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down")

	sweepCancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("api shutdown", zap.Error(err))
	}
	if err := socketServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("socket shutdown", zap.Error(err))
	}
	logger.Info("exited")
}
