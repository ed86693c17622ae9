package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/mochoudhry5/WeddingServices-sub001/app/controllers"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/billing"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/cache"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/database"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/env"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/middleware"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/ratelimit"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/router"
	"github.com/mochoudhry5/WeddingServices-sub001/internal/pkg/s3archive"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()

	stripeConfig := billing.LoadStripeConfig()
	processor, err := billing.NewStripeProcessor(stripeConfig, nil)
	if err != nil {
		log.Fatalf("Stripe configuration: %v", err)
	}

	opts := []billing.ServiceOption{
		billing.WithSummaryCache(billing.NewRedisSummaryCache(cache.GetClient())),
	}

	archiveConfig, err := s3archive.LoadConfig()
	if err != nil {
		log.Fatalf("S3 archive configuration: %v", err)
	}
	if archiveConfig.IsEnabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		archive, err := s3archive.NewArchive(ctx, archiveConfig)
		cancel()
		if err != nil {
			// the archive is optional, webhooks are still reconciled without it
			log.Printf("Warning: S3 webhook archive unavailable: %v", err)
		} else {
			opts = append(opts, billing.WithPayloadArchive(archive))
		}
	}

	controllers.InitializeBillingController(billing.NewServiceFromDB(database.GetDB(), stripeConfig, processor, opts...))

	rateLimit := ratelimit.LoadConfig()
	if storage, err := ratelimit.NewStorage(); err != nil {
		log.Printf("Warning: rate limiter falls back to in-memory counters: %v", err)
	} else {
		rateLimit.Storage = storage
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // Stripe events stay well below 1 MiB
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// ROUTER
	router.InstallRouter(app, router.Config{
		Auth:      middleware.LoadBearerAuthConfig(),
		RateLimit: rateLimit,
		Metrics:   router.LoadMetricsConfig(),
	})

	return app
}
