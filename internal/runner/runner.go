package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/internal/metrics"
	"github.com/goran-ethernal/ChainDemux/internal/retry"
	"github.com/goran-ethernal/ChainDemux/internal/rollback"
	"github.com/goran-ethernal/ChainDemux/pkg/config"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
	"github.com/goran-ethernal/ChainDemux/pkg/source"
)

// Status is a point-in-time view of the runner.
type Status struct {
	Running       bool                `json:"running"`
	ActiveVersion string              `json:"active_version"`
	IndexState    *handler.IndexState `json:"index_state"`
	BlocksHandled uint64              `json:"blocks_handled"`
	Rollbacks     uint64              `json:"rollbacks"`
	LastError     string              `json:"last_error,omitempty"`
	StartedAt     time.Time           `json:"started_at"`
}

// Option configures a Runner.
type Option func(*Runner)

// WithFollow keeps the runner polling the source every interval once it is exhausted.
func WithFollow(interval time.Duration) Option {
	return func(r *Runner) {
		r.follow = true
		r.pollInterval = interval
	}
}

// WithRetrier overrides the retrier built from the runner configuration.
func WithRetrier(retrier retry.Retrier) Option {
	return func(r *Runner) {
		r.retrier = retrier
	}
}

// WithIndexState lets the runner look up the stored bookmark before the loop starts, so that
// StartBlock only applies when nothing was committed yet. Without it StartBlock always applies
// and the handler seeks back to its bookmark on the first block.
func WithIndexState(gateway handler.IndexStateGateway) Option {
	return func(r *Runner) {
		r.gateway = gateway
	}
}

// Runner feeds blocks from a source into an action handler and recovers from seeks and forks.
type Runner struct {
	cfg        config.RunnerConfig
	source     source.BlockSource
	handler    handler.ActionHandler
	rollbacker handler.Rollbacker
	gateway    handler.IndexStateGateway
	strategy   rollback.Strategy
	retrier    retry.Retrier
	log        *logger.Logger

	follow       bool
	pollInterval time.Duration

	mu            sync.RWMutex
	running       bool
	blocksHandled uint64
	rollbacks     uint64
	lastErr       error
	startedAt     time.Time
}

// New creates a Runner.
func New(
	cfg config.RunnerConfig,
	src source.BlockSource,
	h handler.ActionHandler,
	rollbacker handler.Rollbacker,
	strategy rollback.Strategy,
	log *logger.Logger,
	opts ...Option,
) (*Runner, error) {
	if src == nil {
		return nil, errors.New("block source is required")
	}
	if h == nil {
		return nil, errors.New("action handler is required")
	}
	if rollbacker == nil {
		return nil, errors.New("rollbacker is required")
	}
	if strategy == nil {
		return nil, errors.New("rollback strategy is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	r := &Runner{
		cfg:        cfg,
		source:     src,
		handler:    h,
		rollbacker: rollbacker,
		strategy:   strategy,
		log:        log.WithComponent(common.ComponentRunner),
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.retrier == nil {
		r.retrier = retry.New(cfg.Retry,
			retry.WithRetryIf(handler.IsRetryable),
			retry.WithOnRetry(func(attempt uint, err error) {
				r.log.Warnw("retrying block", "attempt", attempt, "error", err)
			}),
		)
	}

	if r.follow && r.pollInterval <= 0 {
		r.pollInterval = time.Second
	}

	return r, nil
}

// Run processes blocks until the source is exhausted (or, in follow mode, until ctx is done).
func (r *Runner) Run(ctx context.Context) error {
	r.setRunning(true)
	defer r.setRunning(false)

	r.log.Infow("starting block loop",
		"start_block", r.cfg.StartBlock,
		"replay_until_block", r.cfg.ReplayUntilBlock,
		"rollback_strategy", r.strategy.Name(),
		"follow", r.follow,
	)

	if r.cfg.StartBlock > 0 {
		stored, err := r.storedIndexState(ctx)
		if err != nil {
			return r.fail(err)
		}

		if stored != nil {
			r.log.Infow("resuming from stored index state, start block ignored",
				"start_block", r.cfg.StartBlock,
				"index_state_block", stored.BlockNumber,
			)
		} else if err := r.seek(ctx, r.cfg.StartBlock); err != nil {
			return r.fail(err)
		}
	}

	isFirstBlock := true

	for {
		select {
		case <-ctx.Done():
			r.log.Info("block loop cancelled")
			return ctx.Err()
		default:
		}

		block, err := r.source.Next(ctx)
		if errors.Is(err, source.ErrEndOfStream) {
			if !r.follow {
				r.log.Infow("block source exhausted", "index_state", r.handler.IndexState())
				return nil
			}
			if err := r.wait(ctx); err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return r.fail(fmt.Errorf("failed to read next block: %w", err))
		}

		BlockReadInc()

		isReplay := r.cfg.ReplayUntilBlock > 0 && block.BlockNumber <= r.cfg.ReplayUntilBlock

		needToSeek, seekBlockNumber, err := r.handleBlock(ctx, block, isReplay, isFirstBlock)
		if err != nil {
			var forkErr *handler.ForkDetectedError
			var effectsErr *handler.EffectsError

			switch {
			case errors.As(err, &effectsErr):
				EffectFailuresInc()
				metrics.ComponentDegraded(common.ComponentActionHandler)
				r.log.Warnw("block committed but effects failed",
					"block", block.BlockNumber,
					"failures", len(effectsErr.Failures),
					"error", effectsErr,
				)
			case errors.As(err, &forkErr):
				if err := r.handleFork(ctx, forkErr); err != nil {
					return r.fail(fmt.Errorf("failed to handle fork at block %d: %w", block.BlockNumber, err))
				}
				isFirstBlock = true
				continue
			default:
				return r.fail(fmt.Errorf("failed to handle block %d: %w", block.BlockNumber, err))
			}
		}

		if needToSeek {
			r.log.Infow("handler requested seek",
				"received_block", block.BlockNumber,
				"seek_block", seekBlockNumber,
			)
			if err := r.seek(ctx, seekBlockNumber); err != nil {
				return r.fail(err)
			}
			isFirstBlock = true
			continue
		}

		isFirstBlock = false

		r.mu.Lock()
		r.blocksHandled++
		r.mu.Unlock()
	}
}

// Status returns the current runner status.
func (r *Runner) Status() Status {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Status{
		Running:       r.running,
		ActiveVersion: r.handler.ActiveVersion(),
		IndexState:    r.handler.IndexState(),
		BlocksHandled: r.blocksHandled,
		Rollbacks:     r.rollbacks,
		StartedAt:     r.startedAt,
	}
	if r.lastErr != nil {
		s.LastError = r.lastErr.Error()
	}

	return s
}

func (r *Runner) handleBlock(
	ctx context.Context,
	block *handler.Block,
	isReplay, isFirstBlock bool,
) (bool, uint64, error) {
	var (
		needToSeek      bool
		seekBlockNumber uint64
	)

	err := r.retrier.Execute(ctx, func() error {
		var err error
		needToSeek, seekBlockNumber, err = r.handler.HandleBlock(ctx, block, isReplay, isFirstBlock)
		return err
	})

	return needToSeek, seekBlockNumber, err
}

// handleFork reverts state to the point chosen by the rollback strategy and repositions the source.
func (r *Runner) handleFork(ctx context.Context, forkErr *handler.ForkDetectedError) error {
	current := r.handler.IndexState()

	r.log.Warnw("fork detected, initiating rollback",
		"block", forkErr.BlockNumber,
		"block_hash", forkErr.BlockHash,
		"previous_block_hash", forkErr.PreviousBlockHash,
		"committed_hash", forkErr.CommittedHash,
	)

	target, err := r.strategy.RollbackPoint(ctx, forkErr, current)
	if err != nil {
		return fmt.Errorf("failed to determine rollback point: %w", err)
	}

	if err := r.rollbacker.RollbackTo(ctx, target); err != nil {
		return fmt.Errorf("failed to roll back to block %d: %w", target, err)
	}

	r.handler.ResetIndexState()

	var depth uint64
	if current != nil && current.BlockNumber > target {
		depth = current.BlockNumber - target
	}
	rollback.RollbackLog(r.strategy.Name(), depth)

	r.mu.Lock()
	r.rollbacks++
	r.mu.Unlock()

	resumeAt := max(target+1, r.cfg.StartBlock)
	if err := r.seek(ctx, resumeAt); err != nil {
		return err
	}

	r.log.Infow("rollback complete, resuming", "rolled_back_to", target, "depth", depth, "resume_block", resumeAt)

	return nil
}

// storedIndexState returns the stored bookmark, nil when there is none or no gateway is set.
func (r *Runner) storedIndexState(ctx context.Context) (*handler.IndexState, error) {
	if r.gateway == nil {
		return nil, nil
	}

	var state *handler.IndexState
	err := r.retrier.Execute(ctx, func() error {
		var err error
		state, err = r.gateway.LoadIndexState(ctx)
		if err != nil {
			return &handler.GatewayError{Op: "load", Err: err}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load stored index state: %w", err)
	}

	return state, nil
}

func (r *Runner) seek(ctx context.Context, blockNumber uint64) error {
	SeekInc()

	if err := r.source.Seek(ctx, blockNumber); err != nil {
		return fmt.Errorf("failed to seek source to block %d: %w", blockNumber, err)
	}

	return nil
}

// wait blocks for one poll interval and refreshes the source if it supports it.
func (r *Runner) wait(ctx context.Context) error {
	IdlePollInc()

	timer := time.NewTimer(r.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		r.log.Info("block loop cancelled")
		return ctx.Err()
	case <-timer.C:
	}

	if refresher, ok := r.source.(source.Refresher); ok {
		if err := refresher.Refresh(ctx); err != nil {
			return r.fail(fmt.Errorf("failed to refresh block source: %w", err))
		}
	}

	return nil
}

func (r *Runner) fail(err error) error {
	r.mu.Lock()
	r.lastErr = err
	r.mu.Unlock()

	metrics.ComponentFailed(common.ComponentRunner)
	r.log.Errorw("block loop stopped", "error", err)

	return err
}

func (r *Runner) setRunning(running bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.running = running
	if running {
		r.startedAt = time.Now().UTC()
		r.lastErr = nil
		metrics.ComponentHealthy(common.ComponentRunner)
	}
}
