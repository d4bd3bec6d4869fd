package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/CristhianMazon/ecommerce-api-main/handlers"
	"github.com/CristhianMazon/ecommerce-api-main/internal/auth"
	"github.com/CristhianMazon/ecommerce-api-main/internal/categories"
	"github.com/CristhianMazon/ecommerce-api-main/internal/consul"
	"github.com/CristhianMazon/ecommerce-api-main/internal/orders"
	"github.com/CristhianMazon/ecommerce-api-main/internal/products"
	"github.com/CristhianMazon/ecommerce-api-main/internal/stores/kafka"
	"github.com/CristhianMazon/ecommerce-api-main/internal/stores/postgres"
	"github.com/CristhianMazon/ecommerce-api-main/internal/users"
	"github.com/CristhianMazon/ecommerce-api-main/pkg/logkey"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const serviceName = "ecommerce-api"

func main() {
	setupSlog()

	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, relying on environment")
	}

	if err := startApp(); err != nil {
		slog.Error("service failed to start", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	db, err := postgres.OpenDB()
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	if err := postgres.RunMigrations(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	keys, err := loadAuthKeys()
	if err != nil {
		return fmt.Errorf("loading auth keys: %w", err)
	}

	usersConf, err := users.NewConf(db)
	if err != nil {
		return fmt.Errorf("building users conf: %w", err)
	}
	productsConf, err := products.NewConf(db)
	if err != nil {
		return fmt.Errorf("building products conf: %w", err)
	}
	categoriesConf, err := categories.NewConf(db)
	if err != nil {
		return fmt.Errorf("building categories conf: %w", err)
	}
	ordersConf, err := orders.NewConf(db, productsConf)
	if err != nil {
		return fmt.Errorf("building orders conf: %w", err)
	}

	// Kafka is optional: the API stays up when the broker is not configured,
	// it just stops publishing order events.
	var kafkaConf *kafka.Conf
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err = kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return fmt.Errorf("connecting kafka producer: %w", err)
		}
		defer kafkaConf.Close()
	} else {
		slog.Warn("KAFKA_BROKERS not set, order events disabled")
	}

	port, err := strconv.Atoi(os.Getenv("APP_PORT"))
	if err != nil || port <= 0 {
		return fmt.Errorf("APP_PORT must be a positive integer")
	}

	if os.Getenv("CONSUL_HTTP_ADDR") != "" {
		consulClient, err := consul.NewClient()
		if err != nil {
			return fmt.Errorf("connecting consul: %w", err)
		}
		host := os.Getenv("APP_HOST")
		if host == "" {
			host = "localhost"
		}
		serviceId := serviceName + "-" + uuid.NewString()
		if err := consul.RegisterService(consulClient, serviceName, serviceId, host, port); err != nil {
			return fmt.Errorf("registering with consul: %w", err)
		}
		defer func() {
			if err := consul.DeregisterService(consulClient, serviceId); err != nil {
				slog.Error("consul deregistration failed", slog.String(logkey.ERROR, err.Error()))
			}
		}()
	}

	router := handlers.API(usersConf, productsConf, categoriesConf, ordersConf, kafkaConf, keys)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("server started", slog.Int("Port", port))
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutdown started", slog.String("Signal", sig.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			if er := server.Close(); er != nil {
				return fmt.Errorf("forcing server close: %w", er)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}
	return nil
}

func loadAuthKeys() (*auth.Keys, error) {
	privatePath := os.Getenv("JWT_PRIVATE_KEY_FILE")
	publicPath := os.Getenv("JWT_PUBLIC_KEY_FILE")
	if privatePath == "" || publicPath == "" {
		return nil, errors.New("JWT_PRIVATE_KEY_FILE and JWT_PUBLIC_KEY_FILE must be set")
	}

	privatePEM, err := os.ReadFile(privatePath)
	if err != nil {
		return nil, fmt.Errorf("reading private key: %w", err)
	}
	publicPEM, err := os.ReadFile(publicPath)
	if err != nil {
		return nil, fmt.Errorf("reading public key: %w", err)
	}
	return auth.NewKeys(privatePEM, publicPEM)
}

func setupSlog() {
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	})
	slog.SetDefault(slog.New(logHandler))
}
