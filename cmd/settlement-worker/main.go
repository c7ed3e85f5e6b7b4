package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkulima/sokoni/internal/config"
	kafkax "github.com/mkulima/sokoni/internal/kafka"
	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/payments"
	"github.com/mkulima/sokoni/internal/postgres"
	"github.com/mkulima/sokoni/internal/redisx"
	"github.com/mkulima/sokoni/internal/settlement"
	"github.com/mkulima/sokoni/internal/users"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	pOK := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentSucceeded, 1024)
	pOK.Start(ctx)
	pFail := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024)
	pFail.Start(ctx)

	paySvc := &payments.Service{
		Store:        &payments.Repo{DB: db},
		Orders:       &orders.Repo{DB: db},
		Users:        &users.Repo{DB: db},
		ProducerOK:   pOK,
		ProducerFail: pFail,
		ServiceName:  cfg.ServiceName + "-settlement",
	}
	svc := &settlement.Service{
		Payments: paySvc,
		Dedup:    settlement.RedisDedup{Client: rdb},
	}

	group := getenv("SETTLEMENT_GROUP", "settlement-svc")
	workers := mustAtoi(os.Getenv("SETTLEMENT_WORKERS"), "8")
	cons := kafkax.NewConsumer(cfg.KafkaBrokers, group, orders.TopicPaymentCallback, workers)

	go func() {
		log.Printf("settlement consumer started: group=%s topic=%s workers=%d", group, orders.TopicPaymentCallback, workers)
		if err := cons.Start(ctx, svc.HandleCallback); err != nil {
			log.Printf("consumer exit: %v", err)
			cancel()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down consumer...")
	cancel()
	time.Sleep(500 * time.Millisecond)
	pOK.Close()
	pFail.Close()
	pOK.WaitClosed()
	pFail.WaitClosed()
}

func mustAtoi(s, def string) int {
	if s == "" {
		s = def
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 1
	}
	return i
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
