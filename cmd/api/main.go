package main

import (
	"os"

	"coopledger/internal/events"
	"coopledger/internal/handlers/business"
	"coopledger/internal/routes"
	"coopledger/pkg/config"

	log "github.com/sirupsen/logrus"
)

func main() {
	config.LoadEnv()
	config.InitLogger(false)

	// Initialize database
	config.InitDB()
	settings := config.LoadLedgerSettings()

	hub := events.NewHub(nil)
	defer hub.Close()
	publishers := business.MultiPublisher{hub}

	// Initialize RabbitMQ (optional, will log warning if not configured)
	if config.RabbitMQEnabled() {
		config.InitRabbitMQ()
		defer func() {
			if config.RabbitMQ != nil {
				config.RabbitMQ.Close()
			}
		}()

		publisher, err := config.NewPublisher()
		if err != nil {
			log.Fatal("Failed to create publisher: ", err)
		}
		defer publisher.Close()
		publishers = append(publishers, events.NewRabbitPublisher(publisher, config.QueueLedgerEvents))
		log.Info("RabbitMQ initialized successfully")
	} else {
		log.Warn("RabbitMQ not configured, ledger events go to websocket subscribers only")
	}

	ledger := business.NewLedger(config.DB, settings, publishers)

	// Set up router
	r := routes.SetupRouter(ledger, hub)

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	if err := r.Run(":" + port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}
