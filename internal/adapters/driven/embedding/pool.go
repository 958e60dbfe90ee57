// Package embedding provides the embedding generation pool. The pool
// isolates a potentially slow-to-load model inside a dedicated worker
// goroutine: callers exchange correlated request/response messages with
// the worker and never run inference themselves.
package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kestrel-labs/mnemo-cli/internal/core/domain"
	"github.com/kestrel-labs/mnemo-cli/internal/core/ports/driven"
	"github.com/kestrel-labs/mnemo-cli/internal/logger"
	"github.com/kestrel-labs/mnemo-cli/internal/vectormath"
)

// Ensure Pool implements the interface.
var _ driven.EmbeddingService = (*Pool)(nil)

// Default configuration values.
const (
	// DefaultRequestTimeout bounds a single embedding request.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultIdleTimeout releases the worker after this long without use.
	DefaultIdleTimeout = 5 * time.Minute

	// MaxTextLength is the maximum input length in runes; longer inputs
	// are truncated before embedding.
	MaxTextLength = 8000

	// requestBuffer is the worker queue depth. Requests beyond it block
	// the sender until the worker catches up.
	requestBuffer = 16
)

// Model is the inference backend owned by the worker goroutine.
// Implementations do not need to be safe for concurrent use: the worker
// serialises all calls.
type Model interface {
	// Load prepares the model for inference. May be slow.
	Load(ctx context.Context) error

	// Embed generates one vector per input text, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// Name returns the model identifier.
	Name() string

	// Close releases model resources.
	Close() error
}

// Config holds pool tuning knobs. Zero values select the defaults.
type Config struct {
	RequestTimeout time.Duration
	IdleTimeout    time.Duration
}

// request travels from a caller to the worker. The correlation id ties
// the eventual response back to the waiting caller; responses may
// arrive in any order relative to other requests.
type request struct {
	id    string
	texts []string
}

// response travels from the worker back to the dispatcher.
type response struct {
	id      string
	vectors [][]float32
	err     error
}

// Pool multiplexes embedding requests onto one worker goroutine.
type Pool struct {
	model          Model
	requestTimeout time.Duration
	idleTimeout    time.Duration

	mu       sync.Mutex
	ready    bool
	loading  bool
	lastErr  string
	lastUsed time.Time
	reqCh    chan request
	stopCh   chan struct{}
	loadDone chan struct{}
	pending  map[string]chan response
	idle     *time.Timer
}

// NewPool creates a pool around the given model. The model is not
// loaded until the first request or an explicit Initialize call.
func NewPool(model Model, cfg Config) *Pool {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	return &Pool{
		model:          model,
		requestTimeout: cfg.RequestTimeout,
		idleTimeout:    cfg.IdleTimeout,
		pending:        make(map[string]chan response),
	}
}

// Initialize loads the model, blocking until the load finishes. If a
// load is already in progress the call joins it. Failure is recoverable:
// a later call retries the load.
func (p *Pool) Initialize(ctx context.Context) error {
	p.mu.Lock()
	if p.ready {
		p.mu.Unlock()
		return nil
	}
	if !p.loading {
		p.startWorkerLocked()
	}
	done := p.loadDone
	p.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}
	return fmt.Errorf("load model %s: %s", p.model.Name(), p.lastErr)
}

// InitializeAsync starts loading in the background. Redundant calls are
// no-ops; a failure is recorded and visible via Status.
func (p *Pool) InitializeAsync() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready || p.loading {
		return
	}
	p.startWorkerLocked()
}

// startWorkerLocked spawns the worker goroutine. Caller holds p.mu and
// has checked that no worker is ready or loading.
func (p *Pool) startWorkerLocked() {
	p.loading = true
	p.lastErr = ""
	p.loadDone = make(chan struct{})
	p.reqCh = make(chan request, requestBuffer)
	p.stopCh = make(chan struct{})
	go p.worker(p.reqCh, p.stopCh, p.loadDone)
}

// worker is the dedicated execution unit. It owns the model for its
// whole lifetime: load, serve, close. No other goroutine touches it.
func (p *Pool) worker(reqCh chan request, stopCh chan struct{}, loadDone chan struct{}) {
	defer func() {
		if r := recover(); r != nil {
			p.failWorker(fmt.Sprintf("worker panic: %v", r))
		}
	}()

	loadCtx, cancel := context.WithTimeout(context.Background(), p.requestTimeout)
	err := p.model.Load(loadCtx)
	cancel()

	p.mu.Lock()
	p.loading = false
	select {
	case <-stopCh:
		// Released while loading; never report ready.
		close(loadDone)
		p.mu.Unlock()
		_ = p.model.Close()
		return
	default:
	}
	if err != nil {
		p.lastErr = err.Error()
		close(loadDone)
		p.mu.Unlock()
		logger.Warn("embedding model %s failed to load: %v", p.model.Name(), err)
		return
	}
	p.ready = true
	close(loadDone)
	p.mu.Unlock()

	logger.Info("embedding model %s loaded (%d dimensions)", p.model.Name(), p.model.Dimensions())

	for {
		select {
		case <-stopCh:
			if err := p.model.Close(); err != nil {
				logger.Debug("closing embedding model: %v", err)
			}
			return
		case req := <-reqCh:
			vectors, embedErr := p.model.Embed(context.Background(), req.texts)
			if embedErr == nil {
				for _, v := range vectors {
					vectormath.Normalize(v)
				}
			}
			p.deliver(response{id: req.id, vectors: vectors, err: embedErr})
		}
	}
}

// deliver routes a response to the caller waiting on its correlation
// id. Responses whose caller already timed out are dropped.
func (p *Pool) deliver(resp response) {
	p.mu.Lock()
	ch, ok := p.pending[resp.id]
	delete(p.pending, resp.id)
	p.mu.Unlock()
	if ok {
		ch <- resp
	}
}

// failWorker records an unexpected worker death, rejects every pending
// request and resets the pool so the next call re-initializes.
func (p *Pool) failWorker(reason string) {
	p.mu.Lock()
	p.ready = false
	p.loading = false
	p.lastErr = reason
	pending := p.pending
	p.pending = make(map[string]chan response)
	if p.loadDone != nil {
		select {
		case <-p.loadDone:
		default:
			close(p.loadDone)
		}
	}
	p.mu.Unlock()

	logger.Warn("embedding worker terminated: %s", reason)
	for id, ch := range pending {
		ch <- response{id: id, err: domain.ErrWorkerTerminated}
	}
}

// Embed generates a vector embedding for the given text.
func (p *Pool) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := p.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed: no vector returned")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for multiple texts, preserving input
// order. The pool auto-initializes on first use.
func (p *Pool) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	truncated := make([]string, len(texts))
	for i, t := range texts {
		truncated[i] = truncate(t, MaxTextLength)
	}

	req := request{id: uuid.NewString(), texts: truncated}
	respCh := make(chan response, 1)

	// The worker may release between the Initialize and the enqueue
	// (idle teardown); one retry re-initializes transparently.
	var reqCh chan request
	for attempt := 0; ; attempt++ {
		if err := p.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrModelUnavailable, err)
		}

		p.mu.Lock()
		if p.ready {
			p.pending[req.id] = respCh
			p.touchLocked()
			reqCh = p.reqCh
			p.mu.Unlock()
			break
		}
		p.mu.Unlock()
		if attempt >= 1 {
			return nil, domain.ErrWorkerTerminated
		}
	}

	select {
	case reqCh <- req:
	case <-ctx.Done():
		p.dropPending(req.id)
		return nil, ctx.Err()
	}

	timer := time.NewTimer(p.requestTimeout)
	defer timer.Stop()

	select {
	case resp := <-respCh:
		if resp.err != nil {
			return nil, resp.err
		}
		p.mu.Lock()
		p.touchLocked()
		p.mu.Unlock()
		return resp.vectors, nil
	case <-timer.C:
		p.dropPending(req.id)
		return nil, domain.ErrRequestTimeout
	case <-ctx.Done():
		p.dropPending(req.id)
		return nil, ctx.Err()
	}
}

// dropPending removes a request from the pending set so a late
// response is discarded instead of delivered.
func (p *Pool) dropPending(id string) {
	p.mu.Lock()
	delete(p.pending, id)
	p.mu.Unlock()
}

// touchLocked marks the pool recently used and re-arms the idle timer.
// Caller holds p.mu.
func (p *Pool) touchLocked() {
	p.lastUsed = time.Now()
	if p.idle == nil {
		p.idle = time.AfterFunc(p.idleTimeout, p.idleRelease)
	} else {
		p.idle.Reset(p.idleTimeout)
	}
}

// idleRelease tears the worker down after a quiet period. Advisory: if
// a request is still in flight the release is skipped and re-armed.
func (p *Pool) idleRelease() {
	p.mu.Lock()
	if len(p.pending) > 0 {
		p.idle.Reset(p.idleTimeout)
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	logger.Debug("embedding pool idle, releasing model %s", p.model.Name())
	p.Release()
}

// Release tears down the worker and frees model resources. Pending
// requests are rejected. Safe to call when already released; the next
// Embed call transparently re-initializes.
func (p *Pool) Release() {
	p.mu.Lock()
	if p.stopCh == nil && !p.ready && !p.loading {
		p.mu.Unlock()
		return
	}
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	p.ready = false
	p.loading = false
	pending := p.pending
	p.pending = make(map[string]chan response)
	if p.idle != nil {
		p.idle.Stop()
	}
	p.mu.Unlock()

	for id, ch := range pending {
		ch <- response{id: id, err: domain.ErrWorkerTerminated}
	}
}

// Status returns a side-effect-free snapshot of the pool state.
func (p *Pool) Status() driven.PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return driven.PoolStatus{
		Ready:      p.ready,
		Loading:    p.loading,
		Err:        p.lastErr,
		LastUsedAt: p.lastUsed,
	}
}

// Dimensions returns the embedding vector size.
func (p *Pool) Dimensions() int {
	return p.model.Dimensions()
}

// ModelName returns the name of the embedding model being used.
func (p *Pool) ModelName() string {
	return p.model.Name()
}

// truncate limits s to max runes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
