package alarm

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/multierr"

	domain "github.com/oshokin/alarm-timer/internal/domain/alarm"
	"github.com/oshokin/alarm-timer/internal/logger"
	"github.com/oshokin/alarm-timer/internal/stopwatch"
)

// Source provides sample transitions to evaluate. *stopwatch.Engine implements it.
type Source interface {
	ConsumeSample() (stopwatch.Sample, bool)
}

var (
	// ErrNoSource is returned when Evaluate is called without an engine.
	ErrNoSource = errors.New("alarm source is not set")
	// ErrNilRecord is returned when registering a nil record.
	ErrNilRecord = errors.New("alarm record is not set")
	// ErrCallbackFailed wraps a failing or panicking alarm action.
	ErrCallbackFailed = errors.New("alarm callback failed")
	// ErrPredicateFailed wraps a panicking alarm predicate.
	ErrPredicateFailed = errors.New("alarm predicate failed")
)

// Stats are cumulative registry counters.
type Stats struct {
	// Records is the number of registered records.
	Records int
	// Fired is the number of activations since the registry was created.
	Fired uint64
	// Failures is the number of failed actions or predicates.
	Failures uint64
}

// entry is the registry-owned copy of a record.
type entry struct {
	// record holds the registered record; guarded by Registry.mu.
	record *domain.Record
	// removed marks entries dropped while an evaluation pass holds a snapshot.
	removed bool
}

// Registry is an ordered collection of alarm records evaluated against stopwatch samples.
// It is safe for concurrent use; actions and predicates run without holding the lock.
type Registry struct {
	// mu protects entries, nextID and the counters.
	mu sync.Mutex
	// entries keeps records in registration order.
	entries []*entry
	// nextID is the last assigned record ID.
	nextID domain.ID
	// fired counts activations.
	fired uint64
	// failures counts failed actions and predicates.
	failures uint64
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return new(Registry)
}

// Register appends a copy of rec and returns its assigned ID. Tags need not be unique.
func (r *Registry) Register(rec *domain.Record) (domain.ID, error) {
	if rec == nil {
		return 0, ErrNilRecord
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++

	stored := rec.Clone()
	stored.ID = r.nextID
	r.entries = append(r.entries, &entry{record: stored})

	return stored.ID, nil
}

// Remove deletes the record with id. Removing an absent record is a no-op that returns false.
func (r *Registry) Remove(id domain.ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, e := range r.entries {
		if e.record.ID == id {
			r.removeAtLocked(i)

			return true
		}
	}

	return false
}

// RemoveByTag deletes every record carrying tag and returns how many were removed.
func (r *Registry) RemoveByTag(tag string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0

	for i := 0; i < len(r.entries); {
		if r.entries[i].record.Tag != tag {
			i++

			continue
		}

		r.removeAtLocked(i)
		removed++
	}

	return removed
}

// SetEnabled toggles the record with id and reports whether it exists.
func (r *Registry) SetEnabled(id domain.ID, enabled bool) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.record.ID == id {
			e.record.Enabled = enabled

			return true
		}
	}

	return false
}

// Get returns a copy of the record with id.
func (r *Registry) Get(id domain.ID) (*domain.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.record.ID == id {
			return e.record.Clone(), true
		}
	}

	return nil, false
}

// Records returns copies of all records in registration order.
func (r *Registry) Records() []*domain.Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*domain.Record, 0, len(r.entries))
	for _, e := range r.entries {
		result = append(result, e.record.Clone())
	}

	return result
}

// Len returns the number of registered records.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.entries)
}

// Stats returns the current counters.
func (r *Registry) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()

	return Stats{
		Records:  len(r.entries),
		Fired:    r.fired,
		Failures: r.failures,
	}
}

// ResetAllFired clears the fired flag of every record. Engines call it on Reset.
func (r *Registry) ResetAllFired() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.record.Fired = false
	}
}

// Evaluate checks every enabled record against the latest sample of src and runs
// the actions of activated records on the calling goroutine, in registration order.
// It returns immediately when src has no fresh sample. Failing actions do not stop
// the pass; their errors are combined into the returned error.
func (r *Registry) Evaluate(ctx context.Context, src Source) error {
	if src == nil {
		return ErrNoSource
	}

	if engine, ok := src.(*stopwatch.Engine); ok && engine == nil {
		return ErrNoSource
	}

	sample, ok := src.ConsumeSample()
	if !ok {
		return nil
	}

	r.mu.Lock()
	snapshot := make([]*entry, len(r.entries))
	copy(snapshot, r.entries)
	r.mu.Unlock()

	var errs error

	for _, e := range snapshot {
		activated, record, err := r.check(e, sample)
		if err != nil {
			logger.ErrorKV(ctx, "Alarm predicate failed", "tag", record.Tag, "id", record.ID, "error", err)
			errs = multierr.Append(errs, err)
		}

		if !activated {
			continue
		}

		logger.DebugKV(ctx, "Alarm activated", "tag", record.Tag, "id", record.ID, "value", sample.Current.String())

		err = invoke(ctx, record)
		if err != nil {
			logger.ErrorKV(ctx, "Alarm callback failed", "tag", record.Tag, "id", record.ID, "error", err)
			errs = multierr.Append(errs, err)
		}

		r.markFired(e, err != nil)
	}

	return errs
}

// check decides activation of e for sample. It returns a copy of the record taken under the lock.
func (r *Registry) check(e *entry, sample stopwatch.Sample) (bool, *domain.Record, error) {
	r.mu.Lock()
	record := e.record.Clone()
	skip := e.removed || !record.Enabled
	r.mu.Unlock()

	if skip {
		return false, record, nil
	}

	activated := !record.Fired && record.ThresholdReached(sample.Current, sample.Direction == stopwatch.Reverse)

	if record.Predicate == nil {
		return activated, record, nil
	}

	matched, err := matches(record.Predicate, sample)
	if err != nil {
		r.mu.Lock()
		r.failures++
		r.mu.Unlock()
	}

	return activated || matched, record, err
}

// markFired flags e as fired and applies remove-on-fire to the live collection.
func (r *Registry) markFired(e *entry, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e.record.Fired = true
	r.fired++

	if failed {
		r.failures++
	}

	if !e.record.RemoveOnFire || e.removed {
		return
	}

	for i, live := range r.entries {
		if live == e {
			r.removeAtLocked(i)

			return
		}
	}
}

// removeAtLocked drops entries[i]. The caller must hold r.mu.
func (r *Registry) removeAtLocked(i int) {
	r.entries[i].removed = true
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
}

// matches runs predicate, converting a panic into ErrPredicateFailed.
func matches(predicate domain.Predicate, sample stopwatch.Sample) (matched bool, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			matched = false
			err = fmt.Errorf("%w: %v", ErrPredicateFailed, rec)
		}
	}()

	return predicate(sample.Previous, sample.Current), nil
}

// invoke runs the record action, converting errors and panics into ErrCallbackFailed.
func invoke(ctx context.Context, record *domain.Record) (err error) {
	if record.Action == nil {
		return nil
	}

	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("%w: tag %q: panic: %v", ErrCallbackFailed, record.Tag, rec)
		}
	}()

	if err = record.Action(ctx); err != nil {
		return fmt.Errorf("%w: tag %q: %w", ErrCallbackFailed, record.Tag, err)
	}

	return nil
}
