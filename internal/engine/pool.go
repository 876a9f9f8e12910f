package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pool manages a pool of pre-warmed engine processes so analysis never
// pays process startup and handshake cost per game.
type Pool struct {
	config    Config
	logger    *slog.Logger
	engines   chan *UCI
	done      chan struct{}
	wg        sync.WaitGroup
	startDone sync.Once
}

var _ Source = (*Pool)(nil)

// NewPool initializes a pool; call Start to begin warming engines.
func NewPool(cfg Config, logger *slog.Logger) *Pool {
	if cfg.PoolSize < 1 {
		cfg.PoolSize = 1
	}
	return &Pool{
		config:  cfg,
		logger:  logger,
		engines: make(chan *UCI, cfg.PoolSize),
		done:    make(chan struct{}),
	}
}

// Start begins filling the pool with warm engine processes in the background.
func (p *Pool) Start() {
	p.startDone.Do(func() {
		p.logger.Info("starting engine pool manager",
			slog.String("binary", p.config.BinaryPath),
			slog.Int("poolSize", p.config.PoolSize))
		p.wg.Add(1)
		go p.manager()
	})
}

// Stop shuts down the manager and quits all warm engines.
func (p *Pool) Stop() {
	p.logger.Info("shutting down engine pool")
	close(p.done)
	p.wg.Wait()

	// Drain channel and quit surviving engines
	for {
		select {
		case eng := <-p.engines:
			_ = eng.Close()
		default:
			return
		}
	}
}

// Acquire returns a ready engine from the pool. It blocks until one is
// available or the context is canceled.
func (p *Pool) Acquire(ctx context.Context) (Evaluator, error) {
	select {
	case eng := <-p.engines:
		return eng, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Release returns a healthy engine to the pool.
func (p *Pool) Release(e Evaluator) {
	eng, ok := e.(*UCI)
	if !ok {
		return
	}
	select {
	case p.engines <- eng:
	case <-p.done:
		_ = eng.Close()
	}
}

// Discard quits a broken engine; the manager spawns a replacement.
func (p *Pool) Discard(e Evaluator) {
	if eng, ok := e.(*UCI); ok {
		_ = eng.Close()
	}
}

// manager continuously ensures the pool is at capacity.
func (p *Pool) manager() {
	defer p.wg.Done()

	for {
		select {
		case <-p.done:
			return
		default:
			if len(p.engines) < cap(p.engines) {
				eng, err := NewUCI(p.config)
				if err != nil {
					p.logger.Error("failed to start pre-warmed engine", slog.String("error", err.Error()))
					time.Sleep(1 * time.Second) // backoff on failure
					continue
				}

				select {
				case p.engines <- eng:
					// Successfully added to pool
				case <-p.done:
					// Shutting down while trying to push
					_ = eng.Close()
					return
				}
			} else {
				// Pool is full, wait a bit
				time.Sleep(100 * time.Millisecond)
			}
		}
	}
}
