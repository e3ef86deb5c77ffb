package container

import (
	"context"
	"fmt"
	"log/slog"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/joshua-takyi/courtpay/internal/config"
	"github.com/joshua-takyi/courtpay/internal/models"
	"github.com/joshua-takyi/courtpay/internal/notify"
	"github.com/joshua-takyi/courtpay/internal/payments"
	"github.com/joshua-takyi/courtpay/internal/services"
)

// Container holds all application dependencies
type Container struct {
	Logger *slog.Logger
	Config *config.Config

	Store    models.Store
	Notifier notify.Notifier

	FacilityService   *services.FacilityService
	SettlementService *services.SettlementService
	PaymentService    *services.PaymentService
}

// NewContainer creates a new dependency injection container. Index creation
// runs here so the unique payment-id backstop exists before the first
// webhook is served.
func NewContainer(
	ctx context.Context,
	logger *slog.Logger,
	cfg *config.Config,
	mongoDBClient *mongo.Client,
	notifier notify.Notifier,
) (*Container, error) {
	store := models.MongodbNewRepo(mongoDBClient)
	if err := store.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return newContainer(logger, cfg, store, notifier), nil
}

// NewContainerWithStore wires the services over an injected store; used by
// tests and local runs without MongoDB.
func NewContainerWithStore(
	logger *slog.Logger,
	cfg *config.Config,
	store models.Store,
	notifier notify.Notifier,
) *Container {
	return newContainer(logger, cfg, store, notifier)
}

func newContainer(logger *slog.Logger, cfg *config.Config, store models.Store, notifier notify.Notifier) *Container {
	processor := payments.NewHTTPClient(cfg.ProcessorBaseURL, cfg.ProcessorToken)

	confirmationService := services.NewConfirmationService(store, logger)
	settlementService := services.NewSettlementService(store, logger)
	facilityService := services.NewFacilityService(store)
	paymentService := services.NewPaymentService(
		store,
		processor,
		confirmationService,
		settlementService,
		notifier,
		logger,
		cfg.CommissionRate,
		cfg.DepositPercent,
	)

	return &Container{
		Logger:            logger,
		Config:            cfg,
		Store:             store,
		Notifier:          notifier,
		FacilityService:   facilityService,
		SettlementService: settlementService,
		PaymentService:    paymentService,
	}
}
