package settings

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/aggregation"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

type Handler struct {
	engine  *aggregation.Engine
	emitter *events.Emitter
	logger  ectologger.Logger
}

func NewHandler(engine *aggregation.Engine, emitter *events.Emitter, logger ectologger.Logger) *Handler {
	return &Handler{engine: engine, emitter: emitter, logger: logger}
}

// Register registers the aggregation switch routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/enabled", h.GetEnabled)
	g.PUT("/enabled", h.SetEnabled)
}

func (h *Handler) GetEnabled(c echo.Context) error {
	return c.JSON(http.StatusOK, models.AggregationEnabledResponse{
		Enabled: h.engine.IsEnabled(),
		Pending: h.engine.PendingCount(),
	})
}

// SetEnabled turns aggregation on or off. Turning it on runs the records queued meanwhile.
func (h *Handler) SetEnabled(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "aggregation_handler.SetEnabled")
	defer span.End()

	req, err := utils.BindRequest[models.AggregationEnabledRequest](c)
	if err != nil {
		return err
	}

	h.engine.SetEnabled(*req.Enabled)
	h.logger.WithContext(ctx).WithFields(map[string]any{
		"enabled": *req.Enabled,
		"pending": h.engine.PendingCount(),
	}).Info("Aggregation switch changed")

	if *req.Enabled && h.engine.PendingCount() > 0 {
		result, err := h.engine.InWriteTransaction(ctx, func(ctx context.Context) error { return nil })
		if err != nil {
			return err
		}
		if err := h.emitter.EmitResult(ctx, result); err != nil {
			h.logger.WithContext(ctx).WithError(err).Error("Failed to emit aggregate events")
		}
	}

	return h.GetEnabled(c)
}
