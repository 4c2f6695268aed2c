package nearbyshops

import (
	"context"
	"encoding/json"
	"fmt"

	"nearby-market/internal/common/camunda"
	"nearby-market/internal/common/config"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/validation"
	"nearby-market/internal/geo"
	"nearby-market/internal/search"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "nearby-shops"

var schema = validation.MustCompile(inputSchema)

type Handler struct {
	config *Config
	logger logger.Logger
	search *search.Service
	runner *camunda.JobRunner
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Search       *search.Service
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
	if opts.Search == nil {
		return nil, fmt.Errorf("%s: search service is required", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config: cfg,
		logger: log,
		search: opts.Search,
		runner: camunda.NewJobRunner(TaskType, cfg.Timeout, schema, log),
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
	area, shops, err := h.search.NearbyShops(ctx, geo.PointFrom(input.Latitude, input.Longitude), input.RadiusKm)
	if err != nil {
		return nil, err
	}

	h.logger.Debug("nearby shops listed", map[string]interface{}{
		"radiusKm": area.RadiusKm,
		"count":    len(shops),
	})
	return &Output{
		Origin:   area.Origin,
		RadiusKm: area.RadiusKm,
		Shops:    shops,
		Count:    len(shops),
	}, nil
}
