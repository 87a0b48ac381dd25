package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"coopledger/internal/events"
	"coopledger/internal/handlers/business"
	"coopledger/internal/models"
	"coopledger/pkg/config"
	"coopledger/schedule"

	log "github.com/sirupsen/logrus"
)

// PaymentConfirmation is the message the payment collaborator puts on the queue
type PaymentConfirmation struct {
	InvestmentID uint   `json:"investment_id"`
	Status       string `json:"status"` // confirmed | failed
	Reference    string `json:"reference"`
}

func main() {
	config.LoadEnv()
	config.InitLogger(true)

	// Initialize database
	config.InitDB()
	settings := config.LoadLedgerSettings()

	// Initialize RabbitMQ
	config.InitRabbitMQ()
	defer config.RabbitMQ.Close()

	publisher, err := config.NewPublisher()
	if err != nil {
		log.Fatal("Failed to create publisher: ", err)
	}
	defer publisher.Close()

	ledger := business.NewLedger(config.DB, settings, events.NewRabbitPublisher(publisher, config.QueueLedgerEvents))

	scheduler, err := schedule.Start(ledger, os.Getenv("RECONCILE_CRON"))
	if err != nil {
		log.Fatal("Failed to start scheduler: ", err)
	}
	defer scheduler.Stop()

	msgConsumer, err := config.NewConsumer(config.QueuePaymentConfirmations)
	if err != nil {
		log.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Payment confirmation worker started, waiting for messages...")

	err = msgConsumer.Consume(ctx, func(msg []byte) error {
		return handlePaymentMessage(ctx, ledger, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("Consumer stopped: ", err)
	}
	log.Info("Payment confirmation worker stopped")
}

// handlePaymentMessage applies one payment outcome. Messages that can never
// succeed are discarded; infrastructure failures are requeued.
func handlePaymentMessage(ctx context.Context, ledger *business.Ledger, msg []byte) error {
	var pc PaymentConfirmation
	if err := json.Unmarshal(msg, &pc); err != nil {
		return fmt.Errorf("%w: malformed payment message: %v", config.ErrDiscard, err)
	}
	if pc.InvestmentID == 0 {
		return fmt.Errorf("%w: payment message without investment_id", config.ErrDiscard)
	}

	fields := log.Fields{
		"investment_id": pc.InvestmentID,
		"status":        pc.Status,
		"reference":     pc.Reference,
	}

	var err error
	switch pc.Status {
	case "confirmed":
		var result *business.ConfirmResult
		result, err = business.WithRetry(ctx, ledger.Settings.ConflictRetries, func() (*business.ConfirmResult, error) {
			return ledger.Lifecycle.ConfirmPayment(pc.InvestmentID, pc.Reference)
		})
		if err == nil {
			fields["already_confirmed"] = result.AlreadyConfirmed
			log.WithFields(fields).Info("Payment confirmation applied")
		}
	case "failed":
		_, err = business.WithRetry(ctx, ledger.Settings.ConflictRetries, func() (*models.Investment, error) {
			return ledger.Lifecycle.FailPayment(pc.InvestmentID, pc.Reference)
		})
		if err == nil {
			log.WithFields(fields).Info("Payment failure applied")
		}
	default:
		return fmt.Errorf("%w: unknown payment status %q", config.ErrDiscard, pc.Status)
	}

	if err == nil {
		return nil
	}
	if business.KindOf(err) != "" && !errors.Is(err, business.ErrConflict) {
		log.WithFields(fields).Errorf("Payment message rejected by ledger: %v", err)
		return fmt.Errorf("%w: %v", config.ErrDiscard, err)
	}
	return err
}
