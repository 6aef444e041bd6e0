package actions

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rasto/lcmc-sub002/pkg/log"
	"github.com/rasto/lcmc-sub002/pkg/metrics"
	"github.com/rs/zerolog"
)

// ErrQueueClosed is returned for actions submitted to, or still waiting in,
// a stopped queue
var ErrQueueClosed = errors.New("action queue closed")

// Func is the work of one action. It must return when ctx is cancelled.
type Func func(ctx context.Context) error

// Config holds queue configuration
type Config struct {
	// Capacity is the number of actions that can wait; Submit blocks
	// beyond it. Defaults to 64.
	Capacity int
}

// Action is one queued user action
type Action struct {
	ID   string
	Name string

	ctx    context.Context
	cancel context.CancelFunc
	fn     Func
	done   chan struct{}
	err    error
}

// Cancel cancels the action. An action that has not started yet never
// runs; a running action sees its context cancelled.
func (a *Action) Cancel() {
	a.cancel()
}

// Done is closed once the action finished
func (a *Action) Done() <-chan struct{} {
	return a.done
}

// Wait blocks until the action finished and returns its error
func (a *Action) Wait() error {
	<-a.done
	return a.err
}

func (a *Action) finish(err error) {
	a.err = err
	a.cancel()
	close(a.done)
}

// Queue runs actions one at a time in submission order
type Queue struct {
	ch        chan *Action
	stopCh    chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	mu        sync.RWMutex
	onFailure func(*Action, error)
	logger    zerolog.Logger
}

// NewQueue creates a new action queue
func NewQueue(cfg Config) *Queue {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 64
	}
	return &Queue{
		ch:     make(chan *Action, cfg.Capacity),
		stopCh: make(chan struct{}),
		logger: log.WithComponent("actions"),
	}
}

// OnFailure registers fn to be called for every action that fails with an
// error other than cancellation
func (q *Queue) OnFailure(fn func(*Action, error)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onFailure = fn
}

// Start starts the worker
func (q *Queue) Start() {
	q.wg.Add(1)
	go q.run()
}

// Stop stops the worker after the running action returned. Waiting
// actions finish with ErrQueueClosed.
func (q *Queue) Stop() {
	q.stopOnce.Do(func() { close(q.stopCh) })
	q.wg.Wait()
	q.drain()
}

// Submit queues fn. The action context derives from ctx.
func (q *Queue) Submit(ctx context.Context, name string, fn Func) (*Action, error) {
	select {
	case <-q.stopCh:
		return nil, ErrQueueClosed
	default:
	}

	actx, cancel := context.WithCancel(ctx)
	a := &Action{
		ID:     uuid.New().String(),
		Name:   name,
		ctx:    actx,
		cancel: cancel,
		fn:     fn,
		done:   make(chan struct{}),
	}

	select {
	case q.ch <- a:
		metrics.ActionQueueDepth.Inc()
		q.logger.Debug().Str("action_id", a.ID).Str("action", name).Msg("Action queued")
		return a, nil
	case <-q.stopCh:
		cancel()
		return nil, ErrQueueClosed
	}
}

func (q *Queue) run() {
	defer q.wg.Done()
	for {
		select {
		case a := <-q.ch:
			q.execute(a)
		case <-q.stopCh:
			q.drain()
			return
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case a := <-q.ch:
			metrics.ActionQueueDepth.Dec()
			metrics.ActionsTotal.WithLabelValues("closed").Inc()
			a.finish(ErrQueueClosed)
		default:
			return
		}
	}
}

func (q *Queue) execute(a *Action) {
	metrics.ActionQueueDepth.Dec()
	logger := q.logger.With().Str("action_id", a.ID).Str("action", a.Name).Logger()

	if err := a.ctx.Err(); err != nil {
		metrics.ActionsTotal.WithLabelValues("cancelled").Inc()
		logger.Debug().Msg("Action cancelled before start")
		a.finish(err)
		return
	}

	err := a.fn(a.ctx)
	switch {
	case err == nil:
		metrics.ActionsTotal.WithLabelValues("success").Inc()
		logger.Debug().Msg("Action completed")
	case errors.Is(err, context.Canceled):
		metrics.ActionsTotal.WithLabelValues("cancelled").Inc()
		logger.Info().Msg("Action cancelled")
	default:
		metrics.ActionsTotal.WithLabelValues("failed").Inc()
		logger.Error().Err(err).Msg("Action failed")
		q.mu.RLock()
		onFailure := q.onFailure
		q.mu.RUnlock()
		if onFailure != nil {
			onFailure(a, err)
		}
	}
	a.finish(err)
}
