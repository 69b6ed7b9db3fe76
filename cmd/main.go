package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	"github.com/spf13/afero"

	"giveaway/internal/config"
	"giveaway/internal/handlers"
	"giveaway/internal/imaging"
	"giveaway/internal/scheduler"
	"giveaway/internal/services"
	"giveaway/internal/store"
	"giveaway/internal/transport"
)

func main() {
	configPath := flag.String("config", "giveaway.yml", "path to the yaml configuration")
	flag.Parse()

	defer logger.Init("giveaway", true, false, io.Discard).Close()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// 1. Open the ledger store.
	if dir := filepath.Dir(cfg.Database); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create database directory: %v", err)
		}
	}
	ledger, err := store.New(cfg.Database, cfg.WinnerCap)
	if err != nil {
		log.Fatalf("Failed to open ledger store: %v", err)
	}

	// 2. Seed the prize catalog from the image directory (first run only).
	osFs := afero.NewOsFs()
	catalog, err := listImages(osFs, cfg.ImageDir)
	if err != nil {
		log.Fatalf("Failed to list image directory %s: %v", cfg.ImageDir, err)
	}
	inserted, err := ledger.SeedPrizes(catalog)
	if err != nil {
		log.Fatalf("Failed to seed prizes: %v", err)
	}
	if inserted > 0 {
		logger.Infof("seeded %d prizes from %s", inserted, cfg.ImageDir)
	}

	// 3. Build the reveal pipeline and the claim arbiter.
	library, err := imaging.NewLibrary(osFs, cfg.ImageDir, cfg.HiddenDir)
	if err != nil {
		log.Fatalf("Failed to initialize image library: %v", err)
	}
	arbiter := services.NewClaimArbiter(ledger, library)

	// 4. Start the distribution scheduler.
	sender := transport.NewWebhookSender(cfg.OfferWebhook)
	distributor := scheduler.NewDistributor(ledger, library, sender, cfg.OfferInterval.Std())
	distributor.Start()

	// 5. Set up the Gin router.
	r := gin.Default()
	handlers.NewHTTPHandler(arbiter, cfg.LeaderboardLimit).RegisterRoutes(r)

	server := &http.Server{Addr: cfg.ListenAddr, Handler: r}
	go func() {
		logger.Infof("server starting on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to run server: %v", err)
		}
	}()

	// 6. Block until a shutdown signal, then stop in reverse order.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down...")

	distributor.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("http server shutdown: %v", err)
	}
	logger.Info("shutdown complete")
}

// listImages returns the plain files in dir, the startup prize catalog.
func listImages(fs afero.Fs, dir string) ([]string, error) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}
