// Package rawrecord serves raw record writes. Every write runs the aggregation pass in the same
// transaction and emits aggregate events after commit.
package rawrecord

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

type Handler struct {
	engine  *aggregation.Engine
	store   store.RecordStore
	emitter *events.Emitter
	logger  ectologger.Logger
}

func NewHandler(engine *aggregation.Engine, store store.RecordStore, emitter *events.Emitter, logger ectologger.Logger) *Handler {
	return &Handler{engine: engine, store: store, emitter: emitter, logger: logger}
}

// Register registers raw record routes
func (h *Handler) Register(g *echo.Group) {
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/verify-name", h.VerifyName)
}

// Create inserts a raw record and places it
func (h *Handler) Create(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "rawrecord_handler.Create")
	defer span.End()

	req, err := utils.BindRequest[models.RawRecordRequest](c)
	if err != nil {
		return err
	}

	record := &models.RawRecord{}
	req.Apply(record)

	var id int64
	result, err := h.engine.InWriteTransaction(ctx, func(ctx context.Context) error {
		var err error
		id, err = h.store.InsertRawRecord(ctx, record, req.DetailRows())
		if err != nil {
			return err
		}
		if _, err := h.engine.OnRawRecordInserted(ctx, id); err != nil {
			return err
		}
		h.engine.MarkForAggregation(ctx, id, record.AggregationMode, req.Force)
		return nil
	})
	if err != nil {
		return err
	}

	return h.respond(ctx, c, http.StatusCreated, id, result)
}

// Get returns a raw record with its details
func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "rawrecord_handler.Get")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	view, err := h.load(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

// Update replaces a raw record's fields and details and re-places it
func (h *Handler) Update(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "rawrecord_handler.Update")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}
	req, err := utils.BindRequest[models.RawRecordRequest](c)
	if err != nil {
		return err
	}

	result, err := h.engine.InWriteTransaction(ctx, func(ctx context.Context) error {
		record, err := h.store.GetRawRecord(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(record)
		if err := h.store.UpdateRawRecord(ctx, record, req.DetailRows()); err != nil {
			return err
		}
		h.engine.MarkForAggregation(ctx, id, record.AggregationMode, req.Force)
		return nil
	})
	if err != nil {
		return err
	}

	return h.respond(ctx, c, http.StatusOK, id, result)
}

// Delete removes a raw record and recomposes or deletes its aggregate
func (h *Handler) Delete(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "rawrecord_handler.Delete")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	deleted := &models.AggregationResult{}
	result, err := h.engine.InWriteTransaction(ctx, func(ctx context.Context) error {
		record, err := h.store.GetRawRecord(ctx, id)
		if err != nil {
			return err
		}
		if err := h.store.DeleteRawRecord(ctx, id); err != nil {
			return err
		}
		r, err := h.engine.OnRawRecordDeleted(ctx, id, record.GetAggregateID())
		if err != nil {
			return err
		}
		deleted.Merge(r)
		return nil
	})
	if err != nil {
		return err
	}
	deleted.Merge(result)

	h.emit(ctx, deleted)
	return c.JSON(http.StatusOK, deleted)
}

// VerifyName marks the raw record's name as the one its aggregate displays
func (h *Handler) VerifyName(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "rawrecord_handler.VerifyName")
	defer span.End()

	id, err := utils.ParamID(c, "id")
	if err != nil {
		return err
	}

	if err := h.engine.SetNameVerified(ctx, id); err != nil {
		return err
	}

	view, err := h.load(ctx, id)
	if err != nil {
		return err
	}
	if aggregateID := view.GetAggregateID(); aggregateID != 0 {
		h.emit(ctx, &models.AggregationResult{Updated: []int64{aggregateID}})
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) respond(ctx context.Context, c echo.Context, status int, id int64, result *models.AggregationResult) error {
	h.emit(ctx, result)

	view, err := h.load(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(status, models.RawRecordResponse{RawRecord: *view, Aggregation: result})
}

func (h *Handler) load(ctx context.Context, id int64) (*models.RawRecordWithDetails, error) {
	record, err := h.store.GetRawRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	details, err := h.store.ListDetails(ctx, []int64{id})
	if err != nil {
		return nil, httperror.WrapError(http.StatusInternalServerError, err)
	}
	if details == nil {
		details = []models.DetailRow{}
	}
	return &models.RawRecordWithDetails{RawRecord: *record, Details: details}, nil
}

// emit runs after commit. A failed publish does not fail the write.
func (h *Handler) emit(ctx context.Context, result *models.AggregationResult) {
	if err := h.emitter.EmitResult(ctx, result); err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("Failed to emit aggregate events")
	}
}
