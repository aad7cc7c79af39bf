package graph

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"gitnet/internal/errors"
)

// Result is the outcome of one submitted layout.
type Result struct {
	Seq  uint64             `json:"seq"`
	Data *VisualizationData `json:"data,omitempty"`
	Err  error              `json:"-"`
}

// Handler receives layout results. It is never called concurrently.
type Handler func(Result)

// Sequencer keeps the highest sequence number accepted so far.
type Sequencer struct {
	mu     sync.Mutex
	latest uint64
}

// Accept records seq and reports true if it is newer than every sequence
// number accepted before; older or repeated numbers are rejected.
func (s *Sequencer) Accept(seq uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.latest {
		return false
	}
	s.latest = seq
	return true
}

// Engine runs layouts off the caller's goroutine. Every Submit gets a new
// sequence number and only the result of the most recent submission is
// delivered; superseded results are dropped.
type Engine struct {
	opts    Options
	handler Handler
	logger  *slog.Logger

	issued    atomic.Uint64
	delivered Sequencer
	deliverMu sync.Mutex
	wg        sync.WaitGroup

	// layout is swapped in tests.
	layout func(Input, Options) *VisualizationData
}

// NewEngine creates an Engine delivering to handler.
func NewEngine(opts Options, handler Handler, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Engine{
		opts:    opts.withDefaults(),
		handler: handler,
		logger:  logger,
		layout:  Layout,
	}
}

// Submit schedules a layout of in and returns its sequence number. The
// input is copied before Submit returns.
func (e *Engine) Submit(in Input) uint64 {
	in = Input{
		Commits:  slices.Clone(in.Commits),
		Branches: slices.Clone(in.Branches),
		Stashes:  slices.Clone(in.Stashes),
		HeadHash: in.HeadHash,
	}
	seq := e.issued.Add(1)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.deliver(e.compute(seq, in))
	}()
	return seq
}

// Wait blocks until every submitted layout has finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func (e *Engine) compute(seq uint64, in Input) (res Result) {
	res.Seq = seq
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Layout panicked",
				"seq", seq,
				"panic", fmt.Sprint(r),
			)
			res.Data = nil
			res.Err = errors.New(errors.InternalError, fmt.Sprintf("layout failed: %v", r), nil, nil)
		}
	}()

	res.Data = e.layout(in, e.opts)
	e.logger.Debug("Layout computed",
		"seq", seq,
		"nodes", len(res.Data.Nodes),
		"durationMs", time.Since(start).Milliseconds(),
	)
	return res
}

func (e *Engine) deliver(res Result) {
	e.deliverMu.Lock()
	defer e.deliverMu.Unlock()

	if res.Seq != e.issued.Load() || !e.delivered.Accept(res.Seq) {
		e.logger.Debug("Dropping stale layout",
			"seq", res.Seq,
			"latest", e.issued.Load(),
		)
		return
	}
	if e.handler != nil {
		e.handler(res)
	}
}
