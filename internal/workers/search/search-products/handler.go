package searchproducts

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

const TaskType = "search-products"

var schema = validation.MustCompile(inputSchema)

type Handler struct {
	config *Config
	logger logger.Logger
	search *search.Service
	live   *search.LiveSearches
	runner *camunda.JobRunner
}

type HandlerOptions struct {
	AppConfig    *config.Config
	CustomConfig *Config
	Search       *search.Service
	// Live is optional; without it live requests are answered once.
	Live   *search.LiveSearches
	Logger logger.Logger
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
		live:   opts.Live,
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

// Execute runs the search once and, when asked, keeps it live.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if input.Live && input.CorrelationKey == "" {
		return nil, apperrors.NewInputValidationError("correlationKey is required for a live search")
	}

	q := search.Query{
		Term:     input.Query,
		Origin:   geo.PointFrom(input.Latitude, input.Longitude),
		RadiusKm: input.RadiusKm,
	}
	res, err := h.search.SearchProducts(ctx, q)
	if err != nil {
		return nil, err
	}

	out := &Output{Results: res}
	if input.Live && h.live != nil && res.Query != "" {
		// Re-queries keep the resolved area.
		q.Origin = &res.Origin
		q.RadiusKm = res.RadiusKm
		h.live.Start(input.CorrelationKey, q, h.config.LiveTTL)
		out.Live = true
	}

	h.logger.Info("product search completed", map[string]interface{}{
		"query":    res.Query,
		"radiusKm": res.RadiusKm,
		"products": len(res.Products),
		"shops":    len(res.Shops),
		"live":     out.Live,
	})
	return out, nil
}
