package exception

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
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

// Register registers aggregation exception routes
func (h *Handler) Register(g *echo.Group) {
	g.PUT("", h.Set)
}

// Set stores a keep-together or keep-separate override, or clears it with automatic
func (h *Handler) Set(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "exception_handler.Set")
	defer span.End()

	req, err := utils.BindRequest[models.AggregationExceptionRequest](c)
	if err != nil {
		return err
	}
	kind, err := models.ParseExceptionKind(req.Kind)
	if err != nil {
		return httperror.WrapError(http.StatusBadRequest, err)
	}

	result, err := h.engine.SetAggregationException(ctx, req.RawRecordID1, req.RawRecordID2, kind)
	if err != nil {
		return err
	}

	if err := h.emitter.EmitResult(ctx, result); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to emit aggregate events")
	}
	return c.JSON(http.StatusOK, result)
}
