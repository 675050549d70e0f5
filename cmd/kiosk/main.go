package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ry4ntr1/ppe-violation-detection/internal/api"
	"github.com/ry4ntr1/ppe-violation-detection/internal/cache"
	"github.com/ry4ntr1/ppe-violation-detection/internal/camera"
	"github.com/ry4ntr1/ppe-violation-detection/internal/database"
	"github.com/ry4ntr1/ppe-violation-detection/internal/notify"
	"github.com/ry4ntr1/ppe-violation-detection/internal/screening"
	"github.com/ry4ntr1/ppe-violation-detection/internal/terminal"
	"github.com/ry4ntr1/ppe-violation-detection/pkg/config"
)

var errNoCamera = errors.New("no camera configured, set CAMERA_DIR or CAMERA_SNAPSHOT_URL")

// noCamera fails every open so that a session start reports the webcam error
type noCamera struct{}

func (noCamera) Open(context.Context) (camera.Stream, error) {
	return nil, errNoCamera
}

func main() {
	employee := flag.String("employee", "", "employee id; starts a screening immediately when -site is also set")
	site := flag.String("site", "", "site id or name")
	imagePath := flag.String("image", "", "screen this image file instead of the camera and exit")
	flag.Parse()

	log.Println("Starting PPE screening kiosk...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	defaults, err := config.LoadKioskDefaults(cfg.KioskDefaultsFile)
	if err != nil {
		log.Printf("Kiosk: %v, using builtin defaults", err)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := api.NewClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout})

	// === Catalog cache ===
	var store cache.Store = cache.NewMemory()
	if cfg.RedisAddr != "" {
		redisClient, err := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			log.Printf("Kiosk: Redis unavailable, caching in memory: %v", err)
		} else {
			defer redisClient.Close()
			store = redisClient
		}
	}

	catalog := screening.NewCatalog(client, store, defaults)
	sites := catalog.Sites(ctx)
	requirements := catalog.Requirements(ctx)

	// === Optional ClickHouse archive ===
	var archive screening.Archive
	if cfg.ClickHouseAddr != "" {
		db, err := database.NewClickHouseDB(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()
		archive = db
	}

	// === Capture device ===
	var device camera.Camera = noCamera{}
	switch {
	case cfg.CameraDir != "":
		device = camera.NewDirectoryCamera(cfg.CameraDir)
		log.Printf("Kiosk: reading frames from %s", cfg.CameraDir)
	case cfg.CameraSnapshotURL != "":
		device = camera.NewSnapshotCamera(cfg.CameraSnapshotURL, &http.Client{Timeout: cfg.HTTPTimeout})
		log.Printf("Kiosk: fetching frames from %s", cfg.CameraSnapshotURL)
	default:
		log.Printf("Kiosk: %v", errNoCamera)
	}

	// === Notifications ===
	view := terminal.NewKiosk(os.Stdout)
	notifiers := []notify.Notifier{notify.Log{}, view}
	if cfg.NatsURL != "" {
		publisher, err := notify.NewPublisher(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		log.Printf("Notify: publishing to %s (connected=%t)", cfg.NatsSubject, publisher.IsConnected())
		notifiers = append(notifiers, publisher)
	}

	screener := screening.NewScreener(screening.Options{
		API:              client,
		Camera:           camera.NewExclusive(device),
		View:             view,
		Notifier:         notify.Multi(notifiers...),
		Archive:          archive,
		Requirements:     requirements,
		DetectInterval:   cfg.DetectInterval,
		PositionInterval: cfg.PositionInterval,
		Dwell:            cfg.AutoCompleteDelay,
	})

	console := &console{
		screener: screener,
		view:     view,
		catalog:  catalog,
		out:      os.Stdout,
	}

	// === One-shot image screening ===
	if *imagePath != "" {
		if err := console.screenImage(ctx, *imagePath, *employee, *site); err != nil {
			log.Fatalf("Image screening failed: %v", err)
		}
		return
	}

	if *employee != "" && *site != "" {
		if err := console.start(ctx, *employee, *site); err != nil {
			log.Printf("Kiosk: %v", err)
		}
	}

	quit := make(chan struct{})
	go func() {
		console.run(ctx, bufio.NewScanner(os.Stdin))
		close(quit)
	}()

	log.Printf("=== Kiosk is running (%d sites, %d requirements) ===", len(sites), len(requirements))
	log.Println("Type 'help' for commands, Ctrl+C to exit...")

	// === Wait for interrupt signal or quit ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		log.Println("Shutdown signal received, stopping...")
	case <-quit:
		log.Println("Quit requested, stopping...")
	}

	console.cancel()
	cancel()
	log.Println("Shutdown complete. Goodbye!")
}
