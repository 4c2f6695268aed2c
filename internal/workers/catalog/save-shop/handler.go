package saveshop

import (
	"context"
	"encoding/json"
	"fmt"

	"nearby-market/internal/catalog"
	"nearby-market/internal/common/camunda"
	"nearby-market/internal/common/config"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/validation"
	"nearby-market/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "save-shop"

var schema = validation.MustCompile(inputSchema)

type Handler struct {
	config  *Config
	logger  logger.Logger
	catalog *catalog.Service
	runner  *camunda.JobRunner
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Catalog      *catalog.Service
	Logger       logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.CustomConfig
	if cfg == nil {
		cfg = LoadConfig(opts.AppConfig)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Catalog == nil {
		return nil, fmt.Errorf("%s: catalog service is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:  cfg,
		logger:  log,
		catalog: opts.Catalog,
		runner:  camunda.NewJobRunner(TaskType, cfg.Timeout, schema, log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.runner.Run(client, job, h.process)
}

func (h *Handler) process(ctx context.Context, variables []byte) (interface{}, error) {
	var input Input
	if err := json.Unmarshal(variables, &input); err != nil {
		return nil, apperrors.NewParseError(err)
	}
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	shop, created, err := h.catalog.SaveShop(ctx, input.UserID, catalog.ShopDraft{
		Name:      input.Name,
		OwnerName: input.OwnerName,
		Phone:     input.Phone,
		Address:   input.Address,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Category:  models.ShopCategory(input.Category),
		IsActive:  input.IsActive,
	})
	if err != nil {
		return nil, err
	}
	return &Output{Shop: *shop, ShopID: shop.ID, Created: created}, nil
}
