package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/otodzorelashvili/Sea-Backend/internal/api"
	"github.com/otodzorelashvili/Sea-Backend/internal/auth"
	"github.com/otodzorelashvili/Sea-Backend/internal/config"
	"github.com/otodzorelashvili/Sea-Backend/internal/feed"
	"github.com/otodzorelashvili/Sea-Backend/internal/hub"
	"github.com/otodzorelashvili/Sea-Backend/internal/presence"
	"github.com/otodzorelashvili/Sea-Backend/internal/repository"
	"github.com/otodzorelashvili/Sea-Backend/internal/storage"
	"github.com/otodzorelashvili/Sea-Backend/internal/ws"
)

func main() {
	_ = godotenv.Load()

	cfgPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	logger, err := newLogger(cfg.App.Env)
	if err != nil {
		log.Fatalf("logger init: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	var verifier auth.Verifier
	if cfg.Auth.Algorithm == "RS256" {
		verifier, err = auth.NewRS256Verifier(cfg.Auth.PublicKeyPath)
		if err != nil {
			sugar.Fatalf("jwt verifier init: %v", err)
		}
	} else {
		verifier = auth.NewHS256Verifier(cfg.Auth.HSSecret)
	}
	if cfg.Auth.Enforce {
		sugar.Info("sender identity mode: verified against bearer token")
	} else {
		sugar.Info("sender identity mode: trust-on-assertion")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var store repository.MessageStore
	if cfg.Mongo.URI != "" {
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			sugar.Fatalf("mongo connect: %v", err)
		}
		defer client.Disconnect(context.Background())
		store = repository.NewMongoStore(client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection))
	} else {
		sugar.Warn("no mongo uri configured, messages are held in memory")
		store = repository.NewMemoryStore()
	}

	h := hub.New()
	router := ws.NewRouter(h, store, verifier, cfg.Auth.Enforce, sugar)

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		router.WithMirror(presence.NewMirror(rdb, cfg.Redis.Prefix, 24*time.Hour))
	}
	if len(cfg.Kafka.Brokers) > 0 {
		producer := feed.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicMessageSent)
		defer producer.Close()
		router.WithFeed(producer)
	}

	var uploader api.Uploader
	if cfg.S3.Bucket != "" {
		uploader, err = storage.NewS3Store(ctx, cfg.S3.Region, cfg.S3.Bucket)
		if err != nil {
			sugar.Fatalf("s3 init: %v", err)
		}
	} else {
		uploader, err = storage.NewLocalStore("uploads", "http://localhost"+addr(cfg.App.Port))
		if err != nil {
			sugar.Fatalf("local media store init: %v", err)
		}
	}

	gw := ws.NewGateway(h, router, cfg.PingInterval, cfg.WriteDeadline, cfg.WS.MaxMessageSizeBytes, sugar)
	app := api.NewServer(h, gw, verifier, uploader, cfg.Auth.Enforce, sugar)

	errs := make(chan error, 1)
	go func() {
		sugar.Infof("realtime relay listening on %s", addr(cfg.App.Port))
		errs <- app.Listen(addr(cfg.App.Port))
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errs:
		sugar.Fatalf("server error: %v", err)
	case s := <-sig:
		sugar.Infof("signal received: %v", s)
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		sugar.Warnf("shutdown: %v", err)
	}
	sugar.Info("server closed gracefully")
}

func addr(port int) string {
	return ":" + strconv.Itoa(port)
}

func newLogger(env string) (*zap.Logger, error) {
	if env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
