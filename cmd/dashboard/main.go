package main

import (
	"bufio"
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/ry4ntr1/ppe-violation-detection/internal/api"
	"github.com/ry4ntr1/ppe-violation-detection/internal/database"
	"github.com/ry4ntr1/ppe-violation-detection/internal/feed"
	"github.com/ry4ntr1/ppe-violation-detection/internal/mqtt"
	"github.com/ry4ntr1/ppe-violation-detection/internal/notify"
	"github.com/ry4ntr1/ppe-violation-detection/internal/services"
	"github.com/ry4ntr1/ppe-violation-detection/internal/terminal"
	"github.com/ry4ntr1/ppe-violation-detection/pkg/config"
)

func main() {
	log.Println("Starting PPE violation dashboard...")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// === Optional ClickHouse archive ===
	var (
		archive services.Archive
		history violationHistory
	)
	if cfg.ClickHouseAddr != "" {
		db, err := database.NewClickHouseDB(cfg.ClickHouseAddr, cfg.ClickHouseDB, cfg.ClickHouseUser, cfg.ClickHousePass)
		if err != nil {
			log.Fatalf("Failed to initialize ClickHouse: %v", err)
		}
		defer db.Close()
		archive = db
		history = db
	}

	// === Notifications ===
	display := terminal.NewDashboard(os.Stdout, cfg.TrackWidth, !color.NoColor)
	notifiers := []notify.Notifier{notify.Log{}, display}
	if cfg.NatsURL != "" {
		publisher, err := notify.NewPublisher(cfg.NatsURL, cfg.NatsSubject)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer publisher.Close()
		log.Printf("Notify: publishing to %s (connected=%t)", cfg.NatsSubject, publisher.IsConnected())
		notifiers = append(notifiers, publisher)
	}

	// === Dashboard service ===
	client := api.NewClient(cfg.APIBaseURL, &http.Client{Timeout: cfg.HTTPTimeout})
	dashboard := services.NewDashboardService(client, archive, display, notify.Multi(notifiers...), nil, services.DashboardConfig{
		Window:          cfg.TimelineWindow,
		Tick:            cfg.TimelineTick,
		AlertConfidence: cfg.AlertConfidence,
		ChannelSize:     100,
	})

	if err := dashboard.LoadSources(ctx); err != nil {
		log.Printf("Dashboard: %v", err)
	}

	go dashboard.Start(ctx)

	// === Live feed ===
	switch cfg.FeedTransport {
	case config.TransportMQTT:
		log.Println("Connecting to MQTT broker...")
		mqttClient := mqtt.NewClient(mqtt.ClientConfig{
			Broker:         cfg.MQTTBroker,
			ClientID:       cfg.MQTTClientID,
			Username:       cfg.MQTTUsername,
			Password:       cfg.MQTTPassword,
			ReconnectDelay: cfg.ReconnectDelay,
		})
		subscriber := mqtt.NewSubscriber(mqtt.SubscriberConfig{
			DetectionTopic:    cfg.MQTTTopicDetection,
			SourceUpdateTopic: cfg.MQTTTopicSourceUpdate,
			StatsTopic:        cfg.MQTTTopicStats,
		}, dashboard.Handle)
		subscriber.Register(mqttClient)
		go mqttClient.Run(ctx)

		log.Printf("MQTT Topics:")
		log.Printf("  - Detection:     %s", cfg.MQTTTopicDetection)
		log.Printf("  - Source update: %s", cfg.MQTTTopicSourceUpdate)
		log.Printf("  - Stats:         %s", cfg.MQTTTopicStats)
	default:
		listener := feed.NewListener(feed.ListenerConfig{
			URL:            cfg.FeedURL(),
			ReconnectDelay: cfg.ReconnectDelay,
		}, dashboard.Handle)
		go listener.Run(ctx)

		log.Printf("Feed: listening on %s", cfg.FeedURL())
	}

	// === Operator commands ===
	console := &console{
		dashboard: dashboard,
		display:   display,
		history:   history,
		out:       os.Stdout,
		dir:       ".",
		now:       time.Now,
	}
	quit := make(chan struct{})
	go func() {
		console.run(ctx, bufio.NewScanner(os.Stdin))
		close(quit)
	}()

	log.Println("=== Dashboard is running ===")
	log.Printf("Timeline window %v, alert confidence %.2f", cfg.TimelineWindow, cfg.AlertConfidence)
	log.Println("Type 'help' for commands, Ctrl+C to exit...")

	// === Wait for interrupt signal or quit ===
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
		log.Println("Shutdown signal received, stopping services...")
	case <-quit:
		log.Println("Quit requested, stopping services...")
	}

	cancel()
	log.Println("Shutdown complete. Goodbye!")
}
