package saveproduct

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nearby-market/internal/catalog"
	"nearby-market/internal/common/camunda"
	"nearby-market/internal/common/config"
	apperrors "nearby-market/internal/common/errors"
	"nearby-market/internal/common/logger"
	"nearby-market/internal/common/validation"
	"nearby-market/internal/models"
	"nearby-market/internal/offers"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const TaskType = "save-product"

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
	restock, err := parseRestockDate(input.RestockDate)
	if err != nil {
		return nil, apperrors.NewProductValidationError(err.Error())
	}

	res, err := h.catalog.SaveProduct(ctx, input.UserID, catalog.ProductDraft{
		ID:                      input.ProductID,
		Name:                    input.Name,
		Description:             input.Description,
		Category:                input.Category,
		ImageURL:                input.ImageURL,
		Price:                   input.Price,
		OriginalPrice:           input.OriginalPrice,
		IsOnSale:                input.IsOnSale,
		SalePercentage:          input.SalePercentage,
		ShowSaleAlert:           input.ShowSaleAlert,
		StockStatus:             models.StockStatus(input.StockStatus),
		StockQuantity:           input.StockQuantity,
		RestockDate:             restock,
		SpecialOfferDescription: input.SpecialOfferDescription,
		HasSpecialOffer:         input.HasSpecialOffer,
		UseShopDiscount:         input.UseShopDiscount,
	})
	if err != nil {
		return nil, err
	}

	return &Output{
		Product:         res.Product,
		ProductID:       res.Product.ID,
		Created:         res.Created,
		StockLabel:      offers.StockLabel(res.Product.StockStatus, res.Product.StockQuantity),
		RestockNotified: res.RestockNotified,
	}, nil
}

func parseRestockDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("restockDate %q is not a date", s)
}
