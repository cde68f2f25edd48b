package aggregate

import (
	"context"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/aggregation"
	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/store"
	"github.com/Ramsey-B/fern/pkg/tracing"
	"github.com/Ramsey-B/fern/pkg/utils"
)

const defaultSuggestionLimit = 10

type Handler struct {
	engine  *aggregation.Engine
	store   store.RecordStore
	emitter *events.Emitter
	logger  ectologger.Logger
}

func NewHandler(engine *aggregation.Engine, store store.RecordStore, emitter *events.Emitter, logger ectologger.Logger) *Handler {
	return &Handler{engine: engine, store: store, emitter: emitter, logger: logger}
}

// Register registers aggregate routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("/lookup", h.Lookup)
	g.GET("/:id", h.Get)
	g.GET("/:id/members", h.Members)
	g.GET("/:id/suggestions", h.Suggestions)
	g.POST("/:id/recompute", h.Recompute)
}

// Get returns an aggregate
func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "aggregate_handler.Get")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	aggregate, err := h.store.GetAggregate(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, aggregate)
}

// Members returns the raw records of an aggregate with their details
func (h *Handler) Members(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "aggregate_handler.Members")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	if _, err := h.store.GetAggregate(ctx, id); err != nil {
		return err
	}

	members, err := h.store.ListMembers(ctx, id)
	if err != nil {
		return httperror.WrapError(http.StatusInternalServerError, err)
	}
	ids := make([]int64, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	details, err := h.store.ListDetails(ctx, ids)
	if err != nil {
		return httperror.WrapError(http.StatusInternalServerError, err)
	}

	byRecord := make(map[int64][]models.DetailRow, len(members))
	for _, d := range details {
		byRecord[d.RawRecordID] = append(byRecord[d.RawRecordID], d)
	}
	views := make([]models.RawRecordWithDetails, len(members))
	for i, m := range members {
		rows := byRecord[m.ID]
		if rows == nil {
			rows = []models.DetailRow{}
		}
		views[i] = models.RawRecordWithDetails{RawRecord: m, Details: rows}
	}
	return c.JSON(http.StatusOK, views)
}

// Suggestions returns aggregates that look like the same person but were not joined
func (h *Handler) Suggestions(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "aggregate_handler.Suggestions")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	limit, err := utils.QueryInt(c, "limit", defaultSuggestionLimit)
	if err != nil {
		return err
	}

	suggestions, err := h.engine.QueryAggregationSuggestions(ctx, id, limit, c.QueryParam("filter"))
	if err != nil {
		return err
	}
	if suggestions == nil {
		suggestions = []aggregation.Suggestion{}
	}
	return c.JSON(http.StatusOK, suggestions)
}

// Lookup resolves a lookup key to the aggregate now holding its records
func (h *Handler) Lookup(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "aggregate_handler.Lookup")
	defer span.End()

	key := c.QueryParam("key")
	if key == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "key is required")
	}

	aggregate, err := h.engine.LookupAggregate(ctx, key)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, aggregate)
}

// Recompute rebuilds derived aggregate fields from the members
func (h *Handler) Recompute(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "aggregate_handler.Recompute")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	req, err := utils.BindRequest[models.RecomputeRequest](c)
	if err != nil {
		return err
	}
	if _, err := h.store.GetAggregate(ctx, id); err != nil {
		return err
	}

	var recompute func(ctx context.Context, id int64) error
	switch req.Part {
	case models.RecomputeDisplayName:
		recompute = h.engine.UpdateDisplayName
	case models.RecomputeLookupKey:
		recompute = h.engine.UpdateLookupKey
	case models.RecomputePhoto:
		recompute = h.engine.UpdatePhotoID
	case models.RecomputeHasPhoneNumber:
		recompute = h.engine.UpdateHasPhoneNumber
	default:
		recompute = h.engine.UpdateAggregateData
	}
	if err := recompute(ctx, id); err != nil {
		return err
	}

	if err := h.emitter.EmitResult(ctx, &models.AggregationResult{Updated: []int64{id}}); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to emit aggregate events")
	}

	aggregate, err := h.store.GetAggregate(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, aggregate)
}
