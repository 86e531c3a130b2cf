// Package query dispatches interactive searches to a background
// goroutine so the caller's event loop never blocks on index I/O or
// rerank computation. Each session holds one Dispatcher with
// single-flight semantics: a new query cancels the one in flight, and
// exactly one outcome is ever delivered per accepted query.
package query

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/naragtive/naragtive/internal/search"
)

// SearchFunc runs one search. Cancellation via ctx must abort the work
// and leave the index untouched; searches are read-only, so aborting
// at any point is safe.
type SearchFunc func(ctx context.Context, storeName, queryText string, opts search.Options) (*search.ResultSet, error)

// Outcome is the single delivery for one accepted query.
type Outcome struct {
	// Seq identifies which Submit produced this outcome.
	Seq int64

	// Query is the submitted query text.
	Query string

	// Result is the validated result set; nil when Err is set.
	Result *search.ResultSet

	// Err is the search failure, if any. Cancelled queries deliver
	// nothing at all rather than an error outcome.
	Err error

	// Elapsed is the wall time from Submit to completion.
	Elapsed time.Duration
}

// Dispatcher owns one session's in-flight query. The zero value is not
// usable; construct with NewDispatcher.
type Dispatcher struct {
	searchFn SearchFunc
	results  chan Outcome

	mu     sync.Mutex
	seq    int64
	cancel context.CancelFunc
	closed bool
}

// NewDispatcher creates a dispatcher around a search function.
func NewDispatcher(searchFn SearchFunc) *Dispatcher {
	return &Dispatcher{
		searchFn: searchFn,
		results:  make(chan Outcome, 1),
	}
}

// Results is the delivery channel. At most one outcome is buffered; a
// newer query's outcome replaces an unconsumed stale one, so a reader
// always observes the latest accepted query.
func (d *Dispatcher) Results() <-chan Outcome {
	return d.results
}

// Submit accepts a query, cancelling any query still in flight. The
// superseded query's outcome is discarded: its goroutine winds down in
// the background and delivers nothing. Returns the sequence number of
// the accepted query, or 0 if the dispatcher is closed.
func (d *Dispatcher) Submit(ctx context.Context, storeName, queryText string, opts search.Options) int64 {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return 0
	}

	if d.cancel != nil {
		d.cancel()
		slog.Debug("query_superseded", slog.Int64("seq", d.seq))
	}

	d.seq++
	seq := d.seq

	queryCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.mu.Unlock()

	go d.run(queryCtx, seq, storeName, queryText, opts)
	return seq
}

// Cancel aborts the in-flight query, if any. The aborted query
// delivers no outcome.
func (d *Dispatcher) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Close cancels any in-flight query and rejects future submissions.
// The results channel stays open so a pending reader unblocks only via
// its own select.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.closed = true
}

func (d *Dispatcher) run(ctx context.Context, seq int64, storeName, queryText string, opts search.Options) {
	start := time.Now()
	result, err := d.searchFn(ctx, storeName, queryText, opts)

	// A cancelled query was superseded or abandoned; it must not
	// deliver, the accepted replacement will.
	if ctx.Err() != nil {
		slog.Debug("query_cancelled", slog.Int64("seq", seq))
		return
	}

	d.deliver(Outcome{
		Seq:     seq,
		Query:   queryText,
		Result:  result,
		Err:     err,
		Elapsed: time.Since(start),
	})
}

// deliver hands the outcome to the reader if this query is still the
// current one. A stale buffered outcome is replaced rather than
// queued behind.
func (d *Dispatcher) deliver(o Outcome) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if o.Seq != d.seq || d.closed {
		return
	}

	for {
		select {
		case d.results <- o:
			return
		default:
		}
		select {
		case <-d.results:
		default:
		}
	}
}
