package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkulima/sokoni/internal/auth"
	"github.com/mkulima/sokoni/internal/cart"
	"github.com/mkulima/sokoni/internal/catalog"
	"github.com/mkulima/sokoni/internal/config"
	"github.com/mkulima/sokoni/internal/httpx"
	kafkax "github.com/mkulima/sokoni/internal/kafka"
	"github.com/mkulima/sokoni/internal/orders"
	"github.com/mkulima/sokoni/internal/payments"
	"github.com/mkulima/sokoni/internal/postgres"
	"github.com/mkulima/sokoni/internal/redisx"
	"github.com/mkulima/sokoni/internal/users"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := postgres.Migrate(cfg.PostgresDSN); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer db.Close()

	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()

	prodOrders := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicOrderCreated, 1024)
	prodOrders.Start(ctx)
	prodPayOK := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentSucceeded, 1024)
	prodPayOK.Start(ctx)
	prodPayFail := kafkax.NewProducer(cfg.KafkaBrokers, orders.TopicPaymentFailed, 1024)
	prodPayFail.Start(ctx)

	catalogRepo := &catalog.Repo{DB: db}
	userRepo := &users.Repo{DB: db}

	cartSvc := &cart.Service{
		Store:    &cart.Repo{DB: db},
		Products: catalogRepo,
	}
	orderSvc := &orders.Service{
		Store:       &orders.Repo{DB: db},
		Producer:    prodOrders,
		DeliveryFee: cfg.DeliveryFee,
		ServiceName: cfg.ServiceName,
	}
	paySvc := &payments.Service{
		Store:        &payments.Repo{DB: db},
		Orders:       &orders.Repo{DB: db},
		Users:        userRepo,
		ProducerOK:   prodPayOK,
		ProducerFail: prodPayFail,
		ServiceName:  cfg.ServiceName,
	}
	authSvc := &auth.Service{
		Tokens: &auth.Repo{DB: db},
		Users:  userRepo,
		Issuer: auth.OpaqueIssuer{},
		TTL:    cfg.RefreshTokenTTL,
	}

	router := httpx.NewRouter(
		&httpx.AuthHandler{Auth: authSvc},
		&httpx.CartHandler{Carts: cartSvc},
		&httpx.OrdersHandler{Orders: orderSvc, Redis: rdb},
		&httpx.PaymentsHandler{Payments: paySvc, Redis: rdb},
		&httpx.ProductsHandler{Catalog: catalogRepo},
	)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		log.Printf("HTTP listening at %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	log.Println("shutting down...")

	ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel2()
	_ = srv.Shutdown(ctx2)
	prodOrders.Close()
	prodPayOK.Close()
	prodPayFail.Close()
	cancel()
	prodOrders.WaitClosed()
	prodPayOK.WaitClosed()
	prodPayFail.WaitClosed()
}
