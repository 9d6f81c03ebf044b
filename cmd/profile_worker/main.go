package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/profile-sync/config"
	"github.com/oksasatya/profile-sync/internal/infrastructure/search"
	"github.com/oksasatya/profile-sync/internal/worker"
	"github.com/oksasatya/profile-sync/pkg/helpers"
	"github.com/oksasatya/profile-sync/pkg/mailer"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-worker", cfg.Env)

	if cfg.RabbitMQURL == "" || cfg.RabbitMQProfileQueue == "" {
		log.Fatal("RabbitMQ not configured")
	}

	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		log.Fatalf("elasticsearch: %v", err)
	}

	handler := &worker.ProfileSync{
		Index:  search.NewProfileIndex(es, cfg.ESProfilesIndex),
		Config: cfg,
		Logger: logger,
	}
	if cfg.MailSendEnabled {
		if cfg.MailgunDomain == "" || cfg.MailgunAPIKey == "" || cfg.MailgunSender == "" {
			log.Fatal("Mailgun not configured")
		}
		handler.Mail = mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	} else {
		logger.Info("MAIL_SEND_ENABLED=false; profile updated mails disabled")
	}

	// Prefetch biar fair dispatch
	consumer, err := helpers.NewRabbitConsumer(cfg.RabbitMQURL, cfg.RabbitMQProfileQueue, 16)
	if err != nil {
		log.Fatalf("amqp: %v", err)
	}
	defer consumer.Close()

	msgs, err := consumer.Deliveries()
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		for msg := range msgs {
			switch handler.Handle(ctx, msg.Body) {
			case worker.Ack:
				_ = msg.Ack(false)
			case worker.Requeue:
				_ = msg.Nack(false, true)
			default:
				_ = msg.Nack(false, false)
			}
		}
		close(done)
	}()

	helpers.LogInfo(logger, "profile worker listening", logrus.Fields{
		"queue":        cfg.RabbitMQProfileQueue,
		"mail_enabled": cfg.MailSendEnabled,
	})
	<-stop
	logger.Info("shutting down...")
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
	}
}
