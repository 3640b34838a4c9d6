package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/appetiteclub/apt"
	"github.com/appetiteclub/apt/events"
	"github.com/appetiteclub/apt/middleware"

	"github.com/appetiteclub/tableside/pkg"
	"github.com/appetiteclub/tableside/pkg/event"
	"github.com/appetiteclub/tableside/services/ordering/internal/catalog"
	"github.com/appetiteclub/tableside/services/ordering/internal/metrics"
	"github.com/appetiteclub/tableside/services/ordering/internal/mongo"
	"github.com/appetiteclub/tableside/services/ordering/internal/order"
	"github.com/appetiteclub/tableside/services/ordering/internal/rush"
	"github.com/appetiteclub/tableside/services/ordering/internal/tables"
)

const (
	appNamespace = "TABLESIDE"
	appName      = "tableside"
	appVersion   = "0.1.0"
)

func main() {
	config, err := apt.LoadConfig(appNamespace, os.Args[1:])
	if err != nil {
		log.Fatalf("%s(%s) cannot setup: %v", appName, appVersion, err)
	}

	logLevel := config.GetStringOrDef("log.level", "info")
	logger := apt.NewLogger(logLevel)

	ctx, stop := signal.NotifyContext(
		context.Background(),
		os.Interrupt,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
	)
	defer stop()

	mockEnabled := config.GetStringOrDef("mock.enabled", "false") == "true"
	recorder := metrics.NewRecorder()

	natsURL := config.GetStringOrDef("nats.url", "nats://localhost:4222")

	pub, err := pkg.NewNATSPublisher(natsURL)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS publisher: %v", appName, appVersion, err)
	}

	sub, err := pkg.NewNATSSubscriber(natsURL, logger)
	if err != nil {
		log.Fatalf("%s(%s) cannot connect to NATS subscriber: %v", appName, appVersion, err)
	}

	// Catalog: menu service with kitchen prep times, fallback menu otherwise
	var menuSource catalog.MenuSource
	var menuSink catalog.MenuSink
	var recipeSource catalog.RecipeSource
	menuURL, _ := config.GetString("services.menu.url")
	kitchenURL, _ := config.GetString("services.kitchen.url")
	if menuURL != "" && !mockEnabled {
		menuAccess := catalog.NewMenuDataAccess(apt.NewServiceClient(menuURL))
		menuSource = menuAccess
		menuSink = menuAccess
		if kitchenURL != "" {
			recipeSource = catalog.NewKitchenDataAccess(apt.NewServiceClient(kitchenURL))
		}
	}
	catalogStore := catalog.NewStore(catalog.NewLoader(menuSource, recipeSource, logger), logger)

	// Rush status
	accumulator := rush.NewAccumulator()
	var source rush.Source
	switch config.GetStringOrDef("rush.source", "local") {
	case "remote":
		if kitchenURL == "" {
			log.Fatalf("%s(%s) cannot use remote rush source: %v", appName, appVersion, errors.New("services.kitchen.url is not configured"))
		}
		source = rush.NewRemoteSource(apt.NewServiceClient(kitchenURL))
	default:
		source = rush.NewLocalSource(accumulator, rush.Thresholds{
			Threshold:           intOrDef(config, "rush.threshold", rush.DefaultThreshold),
			AverageOrderMinutes: intOrDef(config, "rush.average_order_minutes", rush.DefaultAverageOrderMinutes),
		})
	}
	monitor := rush.NewMonitor(source, durationOrDef(config, "rush.interval", rush.DefaultInterval), logger)
	rushStream := rush.NewStreamServer(monitor, logger)
	resetSub := rush.NewResetSubscriber(sub, accumulator, monitor, logger)
	live := tables.NewLiveHub(logger)

	monitor.OnChange(rush.PublishChanges(pub, logger))
	monitor.OnChange(recorder.ObserveRush)
	monitor.OnChange(live.RushChanged)
	monitor.OnChange(rushStream.Broadcast)

	// Order history: MongoDB when configured, memory otherwise
	var history order.History = order.NewMemoryHistory(order.DefaultHistoryLimit)
	baseRepo := mongo.NewBaseRepo(config, logger)
	if baseRepo.Enabled() {
		if err := baseRepo.Start(ctx); err != nil {
			log.Fatalf("%s(%s) cannot start base repository: %v", appName, appVersion, err)
		}
		db := baseRepo.GetDatabase()
		if db == nil {
			log.Fatalf("%s(%s) cannot initialize repository database: %v", appName, appVersion, errors.New("repository database is nil"))
		}
		historyRepo := mongo.NewOrderHistoryRepo(db, order.DefaultHistoryLimit)
		if err := historyRepo.EnsureIndexes(ctx); err != nil {
			logger.Error("cannot create order history indexes", "error", err)
		}
		history = historyRepo
	}

	// Durable receipts, replayed into the history at boot
	var receipts events.Publisher
	var receiptStream *pkg.ReceiptStream
	if config.GetStringOrDef("nats.stream.enabled", "false") == "true" {
		receiptStream, err = pkg.NewReceiptStream(ctx, pkg.ReceiptStreamConfig{
			URL:        natsURL,
			StreamName: "TABLESIDE_RECEIPTS",
			Subject:    event.OrdersSubmittedTopic,
			MaxAge:     7 * 24 * time.Hour,
			MaxMsgs:    10000,
		})
		if err != nil {
			log.Fatalf("%s(%s) cannot open receipts stream: %v", appName, appVersion, err)
		}
		receipts = receiptStream

		if _, err := order.WarmHistory(ctx, history, receiptStream, order.DefaultHistoryLimit, logger); err != nil {
			logger.Error("cannot replay order receipts", "error", err)
		}
	}

	// Submission: dining service or mock
	var submitter order.Submitter
	var dining order.DiningClient
	diningURL, _ := config.GetString("services.dining.url")
	if diningURL != "" && !mockEnabled {
		diningAccess := order.NewDiningDataAccess(apt.NewServiceClient(diningURL))
		dining = diningAccess
		submitter = order.NewDiningSubmitter(diningAccess, logger)
	} else {
		logger.Info("dining service disabled, using mock submitter")
		submitter = order.NewMockSubmitter(logger)
	}

	aggregator := order.NewAggregator(order.Deps{
		Submitter:   submitter,
		Accumulator: accumulator,
		Monitor:     monitor,
		History:     history,
		Publisher:   pub,
		Receipts:    receipts,
		Metrics:     recorder,
	}, order.ConfigFrom(config), logger)

	registry := tables.NewRegistry(
		intOrDef(config, "table.seats", tables.DefaultSeats),
		durationOrDef(config, "confirmation.dismiss_after", 3*time.Second),
		logger,
	)
	registry.OnCount(recorder.SetOpenTables)

	hd := tables.HandlerDeps{
		Registry:    registry,
		Catalog:     catalogStore,
		MenuSink:    menuSink,
		Aggregator:  aggregator,
		Accumulator: accumulator,
		Monitor:     monitor,
		History:     history,
		Dining:      dining,
		Publisher:   pub,
		Live:        live,
		Metrics:     recorder,
	}

	handler := tables.NewHandler(hd, config, logger)

	publisherLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return pub.Close()
		},
	}

	subLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return sub.Close()
		},
	}

	registryLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			registry.CloseAll()
			return nil
		},
	}

	liveLifecycle := apt.LifecycleHooks{
		OnStop: func(context.Context) error {
			return live.Close()
		},
	}

	stack := middleware.DefaultStack(middleware.StackOptions{
		Logger:      logger,
		DisableCORS: true,
	})
	stack = append(stack, middleware.InternalOnly())

	lifecycles := []interface{}{
		catalogStore,
		monitor,
		resetSub,
		registryLifecycle,
		liveLifecycle,
		publisherLifecycle,
		subLifecycle,
	}
	if baseRepo.Enabled() {
		lifecycles = append(lifecycles, apt.LifecycleHooks{OnStop: baseRepo.Stop})
	}
	if receiptStream != nil {
		lifecycles = append(lifecycles, apt.LifecycleHooks{
			OnStop: func(context.Context) error {
				return receiptStream.Close()
			},
		})
	}

	options := []apt.Option{
		apt.WithConfig(config),
		apt.WithLogger(logger),
		apt.WithHTTPMiddleware(stack...),
		apt.WithHTTPServerModules("web.port", handler),
		apt.WithGRPCServerModules("grpc.port", rushStream),
		apt.WithLifecycle(lifecycles...),
		apt.WithHealthChecks(appName),
	}

	ms := apt.NewMicro(options...)
	logger.Infof("Starting %s(%s)", appName, appVersion)

	err = ms.Run(ctx)
	if err != nil {
		_ = baseRepo.Stop(context.Background())
		log.Fatalf("%s(%s) stopped: %v", appName, appVersion, err)
	}

	logger.Infof("%s(%s) stopped", appName, appVersion)
}

func intOrDef(config *apt.Config, key string, def int) int {
	raw, ok := config.GetString(key)
	if !ok || raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func durationOrDef(config *apt.Config, key string, def time.Duration) time.Duration {
	raw, ok := config.GetString(key)
	if !ok || raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
