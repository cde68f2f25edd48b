// Package aggregation places raw records into aggregates and keeps aggregates up to date.
//
// Raw records are marked for aggregation while their writes happen, then the pending queue
// is flushed inside the same transaction with AggregateInTransaction. Every write path runs
// under a single-writer lock; reads such as suggestions take no lock.
package aggregation

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/exceptions"
	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/merging"
	"github.com/Ramsey-B/fern/pkg/metrics"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/namelookup"
	"github.com/Ramsey-B/fern/pkg/store"
	"github.com/Ramsey-B/fern/pkg/tracing"
)

const (
	outcomeUnchanged = "unchanged"
	outcomeReused    = "reused"
	outcomeCreated   = "created"
	outcomeJoined    = "joined"
	outcomeSkipped   = "skipped"
	outcomeDisabled  = "disabled"
)

// Engine is the aggregation coordinator.
type Engine struct {
	logger   ectologger.Logger
	store    store.RecordStore
	index    *namelookup.Index
	resolver *exceptions.Resolver
	composer *merging.Composer
	locker   Locker
	config   Config
	enabled  atomic.Bool

	// mu is the single-writer lock.
	mu sync.Mutex

	pendingMu sync.Mutex
	pending   map[int64]models.AggregationMode
	order     []int64
}

// Option configures an Engine.
type Option func(*Engine)

// WithLocker adds a cross-process writer lock on top of the in-process one.
func WithLocker(locker Locker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

func NewEngine(logger ectologger.Logger, store store.RecordStore, policy merging.AccountPolicy, config Config, opts ...Option) *Engine {
	e := &Engine{
		logger:   logger,
		store:    store,
		index:    namelookup.NewIndex(store, logger),
		resolver: exceptions.NewResolver(store, logger),
		composer: merging.NewComposer(logger, store, policy),
		config:   config.withDefaults(),
		pending:  make(map[int64]models.AggregationMode),
	}
	e.enabled.Store(config.Enabled)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEnabled turns aggregation on or off. While off, flushing leaves the queue untouched.
func (e *Engine) SetEnabled(enabled bool) {
	e.enabled.Store(enabled)
	e.logger.WithFields(map[string]any{"enabled": enabled}).Info("Aggregation enabled changed")
}

func (e *Engine) IsEnabled() bool {
	return e.enabled.Load()
}

// InvalidateAggregationExceptionCache must be called whenever exceptions change out of band.
func (e *Engine) InvalidateAggregationExceptionCache() {
	e.resolver.Invalidate()
}

// MarkForAggregation queues a raw record. Without force, a Default mode does not override
// the mode of a record that is already queued.
func (e *Engine) MarkForAggregation(ctx context.Context, rawRecordID int64, mode models.AggregationMode, force bool) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	existing, queued := e.pending[rawRecordID]
	if queued && !force && mode == models.AggregationModeDefault {
		mode = existing
	}
	if !queued {
		e.order = append(e.order, rawRecordID)
	}
	e.pending[rawRecordID] = mode
	metrics.SetPending(len(e.pending))

	e.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_record_id": rawRecordID,
		"mode":          mode.String(),
		"force":         force,
	}).Debug("Marked raw record for aggregation")
}

// IsPending reports whether the raw record is queued and not processed yet.
func (e *Engine) IsPending(rawRecordID int64) bool {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	_, ok := e.pending[rawRecordID]
	return ok
}

// PendingCount returns the number of queued raw records.
func (e *Engine) PendingCount() int {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	return len(e.pending)
}

// popPending removes and returns the oldest queued raw record.
func (e *Engine) popPending() (int64, models.AggregationMode, bool) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()

	for len(e.order) > 0 {
		id := e.order[0]
		e.order = e.order[1:]
		mode, ok := e.pending[id]
		if !ok {
			continue
		}
		delete(e.pending, id)
		metrics.SetPending(len(e.pending))
		return id, mode, true
	}
	return 0, models.AggregationModeDefault, false
}

func (e *Engine) unmark(rawRecordID int64) {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	delete(e.pending, rawRecordID)
	metrics.SetPending(len(e.pending))
}

func (e *Engine) discardPending() {
	e.pendingMu.Lock()
	defer e.pendingMu.Unlock()
	e.pending = make(map[int64]models.AggregationMode)
	e.order = nil
	metrics.SetPending(0)
}

// InWriteTransaction runs fn and then flushes the pending queue, all inside one transaction
// and under the writer lock. On failure the queue is discarded along with the transaction.
func (e *Engine) InWriteTransaction(ctx context.Context, fn func(ctx context.Context) error) (*models.AggregationResult, error) {
	ctx, release, err := e.acquireWriter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	var result *models.AggregationResult
	err = e.store.InTransaction(ctx, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			return err
		}
		var err error
		result, err = e.AggregateInTransaction(ctx)
		return err
	})
	if err != nil {
		e.discardPending()
		e.resolver.Invalidate()
		return nil, err
	}
	return result, nil
}

// AggregateInTransaction places every queued raw record, oldest first.
func (e *Engine) AggregateInTransaction(ctx context.Context) (*models.AggregationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.AggregateInTransaction")
	defer span.End()

	if !e.IsEnabled() {
		return &models.AggregationResult{}, nil
	}

	ctx, release, err := e.acquireWriter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	start := time.Now()
	p := newPass()
	processed := 0
	err = e.store.InTransaction(ctx, func(ctx context.Context) error {
		for {
			id, mode, ok := e.popPending()
			if !ok {
				return nil
			}
			processed++
			if err := e.aggregateRawRecord(ctx, p, id, mode, true); err != nil {
				return err
			}
		}
	})
	if err != nil {
		e.discardPending()
		e.resolver.Invalidate()
		e.logger.WithContext(ctx).WithError(err).Error("Aggregation pass failed")
		return nil, err
	}

	metrics.RecordPass(time.Since(start).Seconds())
	result := p.result()
	if processed > 0 {
		e.logger.WithContext(ctx).WithFields(map[string]any{
			"raw_records": processed,
			"created":     len(result.Created),
			"updated":     len(result.Updated),
			"deleted":     len(result.Deleted),
			"duration_ms": time.Since(start).Milliseconds(),
		}).Info("Aggregation pass completed")
	}
	return result, nil
}

// AggregateContact places one raw record right away, outside the queue.
func (e *Engine) AggregateContact(ctx context.Context, rawRecordID int64) (*models.AggregationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.AggregateContact")
	defer span.End()

	if !e.IsEnabled() {
		return &models.AggregationResult{}, nil
	}

	ctx, release, err := e.acquireWriter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	p := newPass()
	err = e.store.InTransaction(ctx, func(ctx context.Context) error {
		record, err := e.store.GetRawRecord(ctx, rawRecordID)
		if err != nil {
			return err
		}
		e.unmark(rawRecordID)
		return e.place(ctx, p, record, record.AggregationMode, true)
	})
	if err != nil {
		return nil, err
	}
	return p.result(), nil
}

// OnRawRecordInserted puts a new raw record into a fresh aggregate of its own, without matching.
func (e *Engine) OnRawRecordInserted(ctx context.Context, rawRecordID int64) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.OnRawRecordInserted")
	defer span.End()

	ctx, release, err := e.acquireWriter(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	var aggregateID int64
	err = e.store.InTransaction(ctx, func(ctx context.Context) error {
		if _, err := e.store.GetRawRecord(ctx, rawRecordID); err != nil {
			return err
		}
		var err error
		aggregateID, err = e.createAggregateFor(ctx, rawRecordID)
		return err
	})
	return aggregateID, err
}

// OnRawRecordDeleted recomposes the aggregate that held a deleted raw record, or removes it
// when the raw record was its last member.
func (e *Engine) OnRawRecordDeleted(ctx context.Context, rawRecordID, aggregateID int64) (*models.AggregationResult, error) {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.OnRawRecordDeleted")
	defer span.End()

	ctx, release, err := e.acquireWriter(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	e.unmark(rawRecordID)
	e.resolver.Invalidate()

	p := newPass()
	if aggregateID == 0 {
		return p.result(), nil
	}

	err = e.store.InTransaction(ctx, func(ctx context.Context) error {
		count, err := e.store.CountMembers(ctx, aggregateID)
		if err != nil {
			return err
		}
		if count == 0 {
			p.delete(aggregateID)
			return e.store.DeleteAggregate(ctx, aggregateID)
		}
		p.update(aggregateID)
		return e.composer.UpdateAggregateData(ctx, aggregateID)
	})
	if err != nil {
		return nil, err
	}
	return p.result(), nil
}

// aggregateRawRecord reloads a queued raw record and places it according to its mode.
func (e *Engine) aggregateRawRecord(ctx context.Context, p *pass, rawRecordID int64, mode models.AggregationMode, allowSplit bool) error {
	record, err := e.store.GetRawRecord(ctx, rawRecordID)
	if err != nil {
		if httperror.GetStatusCode(err) == http.StatusNotFound {
			metrics.RecordDecision(outcomeSkipped)
			e.logger.WithContext(ctx).WithFields(map[string]any{"raw_record_id": rawRecordID}).Debug("Skipping raw record that no longer exists")
			return nil
		}
		return err
	}
	return e.place(ctx, p, record, mode, allowSplit)
}

// place decides the aggregate of one raw record and applies the decision.
func (e *Engine) place(ctx context.Context, p *pass, record *models.RawRecord, mode models.AggregationMode, allowSplit bool) error {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.place")
	defer span.End()

	log := e.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_record_id": record.ID,
		"mode":          mode.String(),
	})

	current := record.GetAggregateID()
	if mode == models.AggregationModeDisabled && current != 0 {
		metrics.RecordDecision(outcomeDisabled)
		return nil
	}

	otherMembers := 0
	if current != 0 {
		count, err := e.store.CountMembers(ctx, current)
		if err != nil {
			return err
		}
		otherMembers = max(count-1, 0)
	}

	var target, toSplit int64
	if mode == models.AggregationModeDefault {
		var err error
		target, toSplit, err = e.findTarget(ctx, record, current)
		if err != nil {
			return err
		}
	}

	outcome := outcomeJoined
	if target == 0 && current != 0 && (otherMembers == 0 || mode == models.AggregationModeSuspended) {
		target = current
		outcome = outcomeReused
	}

	switch {
	case target != 0 && target == current:
		if outcome != outcomeReused {
			outcome = outcomeUnchanged
		}
		p.update(current)
		if err := e.composer.UpdateAggregateData(ctx, current); err != nil {
			return err
		}

	case target == 0:
		outcome = outcomeCreated
		id, err := e.createAggregateFor(ctx, record.ID)
		if err != nil {
			return err
		}
		p.create(id)
		if current != 0 && otherMembers > 0 {
			p.update(current)
			if err := e.composer.UpdateAggregateData(ctx, current); err != nil {
				return err
			}
		}

	default:
		if err := e.store.SetRawRecordAggregate(ctx, record.ID, target); err != nil {
			return err
		}
		if current != 0 {
			if otherMembers == 0 {
				p.delete(current)
				if err := e.store.DeleteAggregate(ctx, current); err != nil {
					return err
				}
			} else {
				p.update(current)
				if err := e.composer.UpdateAggregateData(ctx, current); err != nil {
					return err
				}
			}
		}
		p.update(target)
		if err := e.composer.UpdateAggregateData(ctx, target); err != nil {
			return err
		}
	}

	metrics.RecordDecision(outcome)
	log.WithFields(map[string]any{
		"outcome":      outcome,
		"aggregate_id": target,
		"previous_id":  current,
	}).Debug("Placed raw record")

	if toSplit == 0 {
		return nil
	}
	if !allowSplit {
		log.WithFields(map[string]any{"aggregate_id": toSplit}).Debug("Not splitting aggregate during a split")
		return nil
	}
	return e.split(ctx, p, toSplit)
}

// findTarget returns the aggregate the record should join, and an aggregate to split
// because it already holds a record of the same account.
func (e *Engine) findTarget(ctx context.Context, record *models.RawRecord, current int64) (int64, int64, error) {
	var toSplit int64

	// check returns the candidate when the record may join it
	check := func(candidate int64) (int64, error) {
		if candidate == 0 || candidate == current {
			return candidate, nil
		}
		conflict, err := e.store.HasMemberFromAccount(ctx, candidate, record.Account, record.ID)
		if err != nil {
			return 0, err
		}
		if conflict {
			if toSplit == 0 {
				toSplit = candidate
			}
			return 0, nil
		}
		return candidate, nil
	}

	matcher := matching.NewMatcher()

	candidate, found, err := e.resolver.Resolve(ctx, record.ID, matcher, e.IsPending)
	if err != nil {
		return 0, 0, err
	}
	if found {
		target, err := check(candidate)
		if err != nil || target != 0 {
			return target, toSplit, err
		}
	}

	candidate, err = e.matchData(ctx, record, matcher)
	if err != nil {
		return 0, 0, err
	}
	target, err := check(candidate)
	return target, toSplit, err
}

// split leaves the lowest-id member in the aggregate, moves every other member into an
// aggregate of its own and places each of them again. Nested placements never split.
func (e *Engine) split(ctx context.Context, p *pass, aggregateID int64) error {
	ctx, span := tracing.StartSpan(ctx, "aggregation.Engine.split")
	defer span.End()

	members, err := e.store.ListMembers(ctx, aggregateID)
	if err != nil {
		return err
	}
	if len(members) < 2 {
		return nil
	}

	metrics.RecordSplit()
	e.logger.WithContext(ctx).WithFields(map[string]any{
		"aggregate_id": aggregateID,
		"members":      len(members),
	}).Info("Splitting aggregate")

	detached := members[1:]
	for _, member := range detached {
		id, err := e.store.CreateAggregate(ctx)
		if err != nil {
			return err
		}
		p.create(id)
		if err := e.store.SetRawRecordAggregate(ctx, member.ID, id); err != nil {
			return err
		}
	}

	for _, member := range detached {
		if err := e.aggregateRawRecord(ctx, p, member.ID, member.AggregationMode, false); err != nil {
			return err
		}
	}

	p.update(aggregateID)
	return e.composer.UpdateAggregateData(ctx, aggregateID)
}

func (e *Engine) createAggregateFor(ctx context.Context, rawRecordID int64) (int64, error) {
	id, err := e.store.CreateAggregate(ctx)
	if err != nil {
		return 0, err
	}
	if err := e.store.SetRawRecordAggregate(ctx, rawRecordID, id); err != nil {
		return 0, err
	}
	if err := e.composer.UpdateAggregateData(ctx, id); err != nil {
		return 0, err
	}
	return id, nil
}

// pass collects the aggregates touched by one write.
type pass struct {
	created map[int64]bool
	updated map[int64]bool
	deleted map[int64]bool
}

func newPass() *pass {
	return &pass{
		created: make(map[int64]bool),
		updated: make(map[int64]bool),
		deleted: make(map[int64]bool),
	}
}

func (p *pass) create(id int64) { p.created[id] = true }
func (p *pass) update(id int64) { p.updated[id] = true }
func (p *pass) delete(id int64) { p.deleted[id] = true }

// result lists each aggregate once: deleted wins over created, created over updated.
// An aggregate created and deleted in the same pass is not reported.
func (p *pass) result() *models.AggregationResult {
	r := &models.AggregationResult{}
	for id := range p.deleted {
		if !p.created[id] {
			r.Deleted = append(r.Deleted, id)
		}
	}
	for id := range p.created {
		if !p.deleted[id] {
			r.Created = append(r.Created, id)
		}
	}
	for id := range p.updated {
		if !p.created[id] && !p.deleted[id] {
			r.Updated = append(r.Updated, id)
		}
	}
	sortIDs(r.Created)
	sortIDs(r.Updated)
	sortIDs(r.Deleted)
	return r
}

func sortIDs(ids []int64) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
