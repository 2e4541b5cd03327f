package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/forgestack/forgestack/app/controllers"
	"github.com/forgestack/forgestack/app/repository"
	"github.com/forgestack/forgestack/internal/pkg/cache"
	"github.com/forgestack/forgestack/internal/pkg/database"
	"github.com/forgestack/forgestack/internal/pkg/delivery"
	"github.com/forgestack/forgestack/internal/pkg/env"
	"github.com/forgestack/forgestack/internal/pkg/jobqueue"
	"github.com/forgestack/forgestack/internal/pkg/ratelimit"
	"github.com/forgestack/forgestack/internal/pkg/router"
	"github.com/forgestack/forgestack/internal/pkg/webhook"
)

func main() {
	app, shutdown, err := NewApplication()
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer shutdown()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000"))
	if err := app.Listen(addr); err != nil {
		log.Fatal(err)
	}
}

// NewApplication wires configuration, storage, the rate limiter, the webhook
// pipeline and the HTTP surface. The returned shutdown func stops background
// workers and releases connections.
func NewApplication() (*fiber.App, func(), error) {
	env.SetupEnvFile()
	database.SetupDatabase()
	cache.SetupCache()
	repository.InitializeFactory(database.GetDB())
	repos := repository.GetGlobalFactory().GetRepositories()

	// Rate limiter: explicit config injected at construction, shared Redis
	// counter store.
	limiterCfg := ratelimit.LoadConfigFromEnv()
	limiter := ratelimit.NewService(ratelimit.NewRedisCounterStore(cache.GetClient()), limiterCfg)

	// Job queue and processors.
	manager := jobqueue.GetManager()
	queue := manager.GetQueue()

	// Outbound delivery pipeline.
	worker := delivery.NewWorkerFromEnv(repos.WebhookDelivery, repos.WebhookEndpoint)
	dispatcher := delivery.NewDispatcher(repos.WebhookDelivery, repos.WebhookEndpoint,
		jobqueue.NewEnqueuer(queue, jobqueue.JobTypeWebhookDelivery), 0)

	// Inbound webhook pipeline.
	verifier, err := webhook.NewStripeVerifier(
		env.GetEnv("STRIPE_API_SECRET", ""),
		env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
	)
	if err != nil {
		return nil, nil, err
	}
	webhookService := webhook.NewService(repos.WebhookEvent, jobqueue.NewEnqueuer(queue, jobqueue.JobTypeWebhookProcess))
	webhookService.RegisterVerifier(verifier)
	webhookService.RegisterHandler(webhook.ProviderStripe,
		webhook.NewStripeHandler(repos.Organization, repos.WebhookEvent, dispatcher))

	queue.RegisterProcessor(jobqueue.JobTypeWebhookProcess, jobqueue.NewWebhookProcessProcessor(webhookService))
	queue.RegisterProcessor(jobqueue.JobTypeWebhookDelivery, jobqueue.NewWebhookDeliveryProcessor(worker))
	manager.Start()
	dispatcher.Start()

	app := fiber.New(fiber.Config{
		AppName: "ForgeStack",
	})
	app.Use(recover.New(), fiberlogger.New())

	router.InstallRouter(app, router.NewApiRouter(
		limiter,
		controllers.NewWebhookController(webhookService),
		controllers.NewWebhookEndpointController(repos.WebhookEndpoint, repos.WebhookDelivery),
	))

	shutdown := func() {
		dispatcher.Stop()
		manager.Stop()
		if err := limiter.Close(); err != nil {
			log.Printf("error closing rate limiter store: %v", err)
		}
	}
	return app, shutdown, nil
}
