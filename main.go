package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/middleware"

	"github.com/mealkitclub/storefront/internal/events"
	"github.com/mealkitclub/storefront/internal/mongo"
	"github.com/mealkitclub/storefront/internal/natsbus"
	"github.com/mealkitclub/storefront/internal/orders"
	"github.com/mealkitclub/storefront/internal/subscription"
)

const (
	appNamespace = "STOREFRONT"
	appName      = "storefront"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel, _ := config.GetString("log.level")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	baseRepo := mongo.NewBaseRepo(config, logger)
	if err := baseRepo.Start(ctx); err != nil {
		log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
	}

	cartRecordRepo := mongo.NewCartRecordRepo(baseRepo)
	if err := cartRecordRepo.EnsureIndexes(ctx); err != nil {
		log.Fatalf("%s(%s) cannot create cart record indexes: %v", appName, appVersion, err)
	}

	repos := subscription.Repos{
		CustomerRepo:          mongo.NewCustomerRepo(baseRepo),
		SubscriptionRepo:      mongo.NewSubscriptionRepo(baseRepo),
		PlanRepo:              mongo.NewPlanRepo(baseRepo),
		OccurrenceRepo:        mongo.NewOccurrenceRepo(baseRepo),
		OccurrenceProductRepo: mongo.NewOccurrenceProductRepo(baseRepo),
		CartRecordRepo:        cartRecordRepo,
		DeliveryZoneRepo:      mongo.NewDeliveryZoneRepo(baseRepo),
	}

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	pub, err := natsbus.NewPublisher(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	sub, err := natsbus.NewSubscriber(natsURL, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
	}

	publisherLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	}

	subscriberLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return sub.Close()
		},
	}

	ordersURL := config.GetStringOrDef("services.orders.url", "http://localhost:8090")
	ordersClient := orders.NewHTTPClient(ordersURL)

	sessions := subscription.NewSessionRegistry(45 * time.Minute)

	statusSub := events.NewCartStatusSubscriber(sub, cartRecordRepo, sessions, logger)

	hd := subscription.HandlerDeps{
		Repos:     repos,
		Sessions:  sessions,
		OrdersAPI: ordersClient,
		Publisher: pub,
	}

	handler := subscription.NewHandler(hd, config, logger)

	seedHooks := apt.LifecycleHooks{
		OnStart: subscription.SeedingFunc(appName, baseRepo.GetDatabase, logger),
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true, // Internal API service
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles := []interface{}{
		apt.LifecycleHooks{OnStop: baseRepo.Stop},
		statusSub,
		publisherLifecycle,
		subscriberLifecycle,
		seedHooks,
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	if err := ms.Run(ctx); err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}
