package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/example/storefront-core/internal/api"
	"github.com/example/storefront-core/internal/cache"
	"github.com/example/storefront-core/internal/cart"
	"github.com/example/storefront-core/internal/idgen"
	"github.com/example/storefront-core/internal/infrastructure/kafka"
	"github.com/example/storefront-core/internal/order"
	"github.com/example/storefront-core/internal/statistics"
	"github.com/example/storefront-core/internal/stock"
	"github.com/example/storefront-core/internal/store"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Configuration from environment variables
	redisAddr := getEnv("REDIS_ADDR", "localhost:6379")
	redisPassword := os.Getenv("REDIS_PASSWORD")
	redisDB := getEnvInt("REDIS_DB", 0)
	awsRegion := getEnv("AWS_REGION", "us-east-1")
	dynamoEndpoint := os.Getenv("DYNAMO_ENDPOINT")
	orderTable := getEnv("ORDER_TABLE", "orders")
	cartTable := getEnv("CART_TABLE", "carts")
	productTable := getEnv("PRODUCT_TABLE", "products")
	kafkaBrokersStr := getEnv("KAFKA_BROKERS", "localhost:9092")
	kafkaBrokers := strings.Split(kafkaBrokersStr, ",")
	kafkaTopic := getEnv("KAFKA_TOPIC", "order-events")
	listenAddr := getEnv("LISTEN_ADDR", ":8080")
	drainInterval := getEnvDuration("STATS_DRAIN_INTERVAL", statistics.DefaultDrainInterval)
	auditEvents := getEnv("ORDER_EVENTS_AUDIT", "false") == "true"

	log.Println("[Main] ========================================")
	log.Println("[Main] Storefront Core")
	log.Println("[Main] ========================================")
	log.Printf("[Main] Redis: %s", redisAddr)
	log.Printf("[Main] DynamoDB: region=%s endpoint=%s", awsRegion, dynamoEndpoint)
	log.Printf("[Main] Kafka: %v topic=%s", kafkaBrokers, kafkaTopic)

	// Shared store clients, opened once, closed at shutdown.
	redisStore, err := cache.Connect(ctx, redisAddr, redisPassword, redisDB)
	if err != nil {
		log.Fatalf("[Main] Failed to connect to Redis: %v", err)
	}
	defer redisStore.Close()
	log.Println("[Main] Connected to Redis")

	dynamoClient, err := store.Connect(ctx, awsRegion, dynamoEndpoint)
	if err != nil {
		log.Fatalf("[Main] Failed to create DynamoDB client: %v", err)
	}

	producer := kafka.NewProducer(kafkaBrokers, kafkaTopic)
	defer producer.Close()

	// Persistence
	orderStore := store.NewDynamoOrderStore(dynamoClient, orderTable)
	cartStore := store.NewDynamoCartStore(dynamoClient, cartTable)
	productStore := store.NewDynamoProductStore(dynamoClient, productTable)

	// Domain services
	ledger := stock.NewLedger(redisStore)
	ids := idgen.NewGenerator(redisStore)
	cartSvc := cart.NewService(redisStore, cartStore, ledger, productStore)
	tally := order.NewTally(redisStore)
	statsPipeline := statistics.NewPipeline(redisStore, orderStore, productStore)
	orderSvc := order.NewService(orderStore, ledger, cartSvc, productStore, ids, statsPipeline, tally, producer)

	var wg sync.WaitGroup

	// Statistics consumer: fixed-interval drain of the update queue.
	wg.Add(1)
	go func() {
		defer wg.Done()
		statsPipeline.Run(ctx, drainInterval)
	}()

	// Optional audit trail of published lifecycle events.
	if auditEvents {
		consumer := kafka.NewConsumer(kafkaBrokers, kafkaTopic, "storefront-audit")
		defer consumer.Close()

		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Println("[Main] Order event audit logger started")
			err := consumer.Consume(ctx, func(_ context.Context, envelope kafka.Envelope) error {
				log.Printf("[Audit] %s order=%s status=%s amount=%s",
					envelope.Event.Type, envelope.Event.OrderID, envelope.Event.Status, envelope.Event.Amount)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				log.Printf("[Main] Audit consumer error: %v", err)
			}
		}()
	}

	// HTTP surface
	handlers := api.NewHandlers(cartSvc, orderSvc, statsPipeline, tally)
	server := &http.Server{
		Addr:    listenAddr,
		Handler: api.NewRouter(handlers),
	}

	go func() {
		log.Printf("[Main] Server started on %s", listenAddr)
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatalf("[Main] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[Main] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	server.Shutdown(shutdownCtx)

	wg.Wait()
	log.Println("[Main] Stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("[Main] Invalid %s=%q, using %d", key, raw, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		log.Printf("[Main] Invalid %s=%q, using %s", key, raw, defaultValue)
		return defaultValue
	}
	return value
}
