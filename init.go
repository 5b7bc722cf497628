package main

import (
	"context"
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/delivro/shipment/internal/config"
	"github.com/delivro/shipment/internal/events"
	"github.com/delivro/shipment/internal/store"
	"github.com/delivro/shipment/internal/telemetry"
	"github.com/delivro/shipment/pkg/shipment"
	"github.com/delivro/shipment/pkg/shipment/carriers/canadapost"
	"github.com/delivro/shipment/pkg/shipment/carriers/mock"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return func(context.Context) error { return nil }, nil
	}

	_, shutdown, err := telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version)
	return shutdown, err
}

// App bundles the wired application components.
type App struct {
	Registry *shipment.Registry
	Builder  *shipment.BlueprintBuilder
	Service  *shipment.ShipmentService

	closers []func() error
}

// Close releases held resources in reverse wiring order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

func initApp(ctx context.Context, cfg *config.Config, logger *otelzap.Logger) (*App, error) {
	app := &App{}

	var (
		shipments shipment.ShipmentStore
		orders    shipment.OrderStore
		tx        shipment.TxRunner
	)
	if cfg.UseMemoryStore {
		shipments = store.NewMemoryShipmentStore()
		orders = store.NewMemoryOrderStore()
		tx = store.PassthroughTx{}
	} else {
		if cfg.DatabaseDSN == "" {
			return nil, fmt.Errorf("DATABASE_DSN is required unless USE_MEMORY_STORE is set")
		}
		pool, err := store.NewPool(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to database: %w", err)
		}
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
		shipments = store.NewPostgresShipmentStore(pool)
		orders = store.NewPostgresOrderStore(pool)
		tx = store.NewPgxTxRunner(pool)
	}

	var tracer trace.Tracer
	if cfg.OTELEnabled {
		tracer = otel.GetTracerProvider().Tracer(cfg.ServiceName)
	}

	registry := shipment.NewRegistry()
	registry.Register(mock.New("mock", shipments))
	if cfg.CanadaPostEnabled {
		registry.Register(canadapost.New(canadapost.Config{
			APIKey:    cfg.CanadaPostAPIKey,
			AccountID: cfg.CanadaPostAccountID,
			BaseURL:   cfg.CanadaPostBaseURL,
			UseMock:   cfg.CanadaPostUseMock,
		}, shipments, logger, tracer))
	}
	app.Registry = registry

	bus := events.NewBus()
	bus.SubscribeNotifier(events.LogNotifier{Logger: logger})
	if cfg.KafkaEnabled {
		publisher := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		app.closers = append(app.closers, publisher.Close)
		bus.SubscribeNotifier(publisher)
		bus.SubscribeObserver(publisher)
	}

	configuration := staticConfiguration(cfg)
	tracking := shipment.NewTrackingCodeUpdater(orders, logger)
	metrics := telemetry.NewMetrics()

	app.Builder = shipment.NewBlueprintBuilder(shipment.BlueprintBuilderDeps{
		Orders:    orders,
		Shipments: shipments,
		Registry:  registry,
		Config:    configuration,
		Corrector: shipment.NopAddressCorrector{},
		Redactor: shipment.ContactInfoRedactor{
			RedactPhone: cfg.RedactReceiverPhone,
			RedactEmail: cfg.RedactReceiverEmail,
		},
		Hydrator:  shipment.OrderItemHydrator{},
		Packer:    shipment.WeightLimitPacker{},
		Notifier:  bus,
		Observers: []shipment.BlueprintObserver{bus},
		Logger:    logger,
	})

	app.Service = shipment.NewShipmentService(shipment.ShipmentServiceDeps{
		Shipments: shipments,
		Orders:    orders,
		Registry:  registry,
		Config:    configuration,
		Tracking:  tracking,
		Tx:        tx,
		Logger:    logger,
		Metrics:   metrics,
	})

	return app, nil
}

func staticConfiguration(cfg *config.Config) *shipment.StaticConfiguration {
	sender := shipment.Address{
		Name:        cfg.SenderName,
		Company:     cfg.SenderCompany,
		Street:      cfg.SenderStreet,
		HouseNumber: cfg.SenderHouseNumber,
		City:        cfg.SenderCity,
		Zip:         cfg.SenderZip,
		CountryCode: cfg.SenderCountryCode,
	}

	carriers := map[string]shipment.CarrierSettings{
		"mock": {
			Active:            true,
			CODPaymentMethods: cfg.CODPaymentMethods,
		},
	}
	if cfg.CanadaPostEnabled {
		carriers["canadapost"] = shipment.CarrierSettings{
			Active: true,
			ForwardConfig: shipment.ShipmentConfig{
				"serviceCode": "DOM.RP",
			},
			ReturnConfig: shipment.ShipmentConfig{
				"serviceCode": "DOM.RP",
			},
		}
	}

	return &shipment.StaticConfiguration{
		Carriers: carriers,
		ShippingMethods: map[string]shipment.ShippingMethod{
			"mock-standard": {ID: "mock-standard", Name: "Mock Standard", CarrierName: "mock"},
			"cp-regular":    {ID: "cp-regular", Name: "Canada Post Regular Parcel", CarrierName: "canadapost"},
		},
		SenderAddress: sender,
	}
}
