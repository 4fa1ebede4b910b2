package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goran-ethernal/ChainDemux/internal/common"
	"github.com/goran-ethernal/ChainDemux/internal/continuity"
	"github.com/goran-ethernal/ChainDemux/internal/logger"
	"github.com/goran-ethernal/ChainDemux/internal/registry"
	"github.com/goran-ethernal/ChainDemux/pkg/handler"
)

var _ handler.ActionHandler = (*ActionHandler[struct{}])(nil)

// Option configures an ActionHandler.
type Option func(*options)

type options struct {
	effectsEnabled bool
}

// WithEffects enables or disables the effect pipeline. Effects are enabled by default.
func WithEffects(enabled bool) Option {
	return func(o *options) {
		o.effectsEnabled = enabled
	}
}

// ActionHandler dispatches block actions to the bindings of the active handler version,
// keeps the bookmark of the last committed block and runs effects after commit.
// HandleBlock calls must be serialized by the caller.
type ActionHandler[S any] struct {
	registry *registry.Registry[S]
	store    handler.StateStore[S]
	gateway  handler.IndexStateGateway
	log      *logger.Logger
	opts     options

	mu            sync.RWMutex
	activeVersion string
	indexState    *handler.IndexState
	loaded        bool
}

// New creates an ActionHandler over the given versions. The first version is active until
// a stored bookmark or an updater selects another one.
func New[S any](
	versions []handler.Version[S],
	store handler.StateStore[S],
	gateway handler.IndexStateGateway,
	log *logger.Logger,
	opts ...Option,
) (*ActionHandler[S], error) {
	if store == nil {
		return nil, errors.New("state store is required")
	}
	if gateway == nil {
		return nil, errors.New("index state gateway is required")
	}
	if log == nil {
		log = logger.NewNopLogger()
	}

	reg, err := registry.New(versions)
	if err != nil {
		return nil, fmt.Errorf("failed to build version registry: %w", err)
	}

	o := options{effectsEnabled: true}
	for _, opt := range opts {
		opt(&o)
	}

	h := &ActionHandler[S]{
		registry:      reg,
		store:         store,
		gateway:       gateway,
		log:           log.WithComponent(common.ComponentActionHandler),
		opts:          o,
		activeVersion: reg.First(),
	}

	ActiveVersionSet(h.activeVersion)
	h.log.Infow("action handler initialized",
		"versions", reg.Names(),
		"active_version", h.activeVersion,
		"effects_enabled", o.effectsEnabled,
	)

	return h, nil
}

// HandleBlock implements handler.ActionHandler.
func (h *ActionHandler[S]) HandleBlock(
	ctx context.Context,
	block *handler.Block,
	isReplay, isFirstBlock bool,
) (bool, uint64, error) {
	if block == nil {
		return false, 0, errors.New("block is nil")
	}

	if isFirstBlock && !h.isLoaded() {
		if err := h.loadIndexState(ctx); err != nil {
			BlockHandledInc(outcomeFailed)
			return false, 0, err
		}
	}

	h.mu.RLock()
	last := h.indexState
	version := h.activeVersion
	h.mu.RUnlock()

	res := continuity.Check(block, last)
	switch res.Decision {
	case continuity.NeedSeek:
		h.log.Debugf("block %d is not the next expected block, seeking to %d", block.BlockNumber, res.SeekBlockNumber)
		BlockHandledInc(outcomeSeek)
		return true, res.SeekBlockNumber, nil
	case continuity.Fork:
		h.log.Warnw("fork detected",
			"block", block.BlockNumber,
			"block_hash", block.BlockHash,
			"previous_block_hash", block.PreviousBlockHash,
			"committed_hash", last.BlockHash,
		)
		BlockHandledInc(outcomeFork)
		return false, 0, res.Err
	}

	start := time.Now()
	meta := block.Meta(isReplay)

	var (
		versioned    []handler.VersionedAction
		finalVersion string
	)

	err := h.store.WithState(ctx, func(ctx context.Context, state S) error {
		var err error
		versioned, finalVersion, err = h.applyUpdaters(state, block, meta, version)
		if err != nil {
			return err
		}

		next := handler.IndexState{
			BlockNumber:    block.BlockNumber,
			BlockHash:      block.BlockHash,
			HandlerVersion: finalVersion,
		}
		if err := h.gateway.SaveIndexState(ctx, next); err != nil {
			return &handler.GatewayError{Op: "save", Err: err}
		}

		return nil
	})
	if err != nil {
		BlockHandledInc(outcomeFailed)
		return false, 0, classifyCommitError(err)
	}

	h.commit(block, version, finalVersion)
	for _, va := range versioned {
		ActionsAppliedAdd(va.VersionName, 1)
	}
	BlockHandleTimeLog(time.Since(start))
	BlockHandledInc(outcomeCommitted)

	h.log.Debugw("block committed",
		"block", block.BlockNumber,
		"hash", block.BlockHash,
		"actions", len(block.Actions),
		"version", finalVersion,
		"replay", isReplay,
	)

	if isReplay || !h.opts.effectsEnabled {
		return false, 0, nil
	}

	var effectsErr error
	if err := h.store.View(ctx, func(ctx context.Context, state S) error {
		effectsErr = h.runEffects(ctx, state, versioned, meta)
		return nil
	}); err != nil {
		h.log.Errorw("failed to open state for effects", "block", block.BlockNumber, "error", err)
		return false, 0, &handler.EffectsError{
			BlockNumber: block.BlockNumber,
			Failures:    []handler.EffectFailure{{Version: finalVersion, Err: err}},
		}
	}

	return false, 0, effectsErr
}

// ActiveVersion implements handler.ActionHandler.
func (h *ActionHandler[S]) ActiveVersion() string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.activeVersion
}

// IndexState implements handler.ActionHandler.
func (h *ActionHandler[S]) IndexState() *handler.IndexState {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.indexState == nil {
		return nil
	}

	state := *h.indexState

	return &state
}

// ResetIndexState implements handler.ActionHandler.
func (h *ActionHandler[S]) ResetIndexState() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.indexState = nil
	h.loaded = false
}

// applyUpdaters runs the updater bound to each action under the version current at that action.
// It returns every action tagged with its version and the version active after the last action.
// The handler's own pointer is left untouched so that a failed commit has no effect on it.
func (h *ActionHandler[S]) applyUpdaters(
	state S,
	block *handler.Block,
	meta handler.BlockMeta,
	version string,
) ([]handler.VersionedAction, string, error) {
	versioned := make([]handler.VersionedAction, 0, len(block.Actions))

	for _, action := range block.Actions {
		versioned = append(versioned, handler.VersionedAction{Action: action, VersionName: version})

		updater, ok := h.registry.Updater(version, action.Name)
		if !ok {
			continue
		}

		next, err := updater.Apply(state, action.Payload, meta)
		if err != nil {
			return nil, "", &handler.UpdaterError{
				Action:      action.Name,
				Version:     version,
				BlockNumber: block.BlockNumber,
				Err:         err,
			}
		}

		if next == "" || next == version {
			continue
		}

		if !h.registry.Has(next) {
			return nil, "", &handler.UnknownVersionError{
				Version:     next,
				Action:      action.Name,
				BlockNumber: block.BlockNumber,
			}
		}

		h.log.Debugf("action %s at block %d switches handler version %s -> %s",
			action.Name, block.BlockNumber, version, next)
		version = next
	}

	return versioned, version, nil
}

// runEffects runs the effect bound to each recorded action under the version that processed it.
// A failing effect is logged and collected; the remaining effects still run.
func (h *ActionHandler[S]) runEffects(
	ctx context.Context,
	state S,
	versioned []handler.VersionedAction,
	meta handler.BlockMeta,
) error {
	var failures []handler.EffectFailure

	for _, va := range versioned {
		effect, ok := h.registry.Effect(va.VersionName, va.Action.Name)
		if !ok {
			continue
		}

		if err := runEffect(ctx, effect, state, va, meta); err != nil {
			h.log.Errorw("effect failed",
				"block", meta.BlockNumber,
				"action", va.Action.Name,
				"version", va.VersionName,
				"error", err,
			)
			EffectFailedInc(va.VersionName, va.Action.Name)
			failures = append(failures, handler.EffectFailure{
				Action:  va.Action.Name,
				Version: va.VersionName,
				Err:     err,
			})

			continue
		}

		EffectRunInc(va.VersionName)
	}

	if len(failures) > 0 {
		return &handler.EffectsError{BlockNumber: meta.BlockNumber, Failures: failures}
	}

	return nil
}

func runEffect[S any](
	ctx context.Context,
	effect handler.Effect[S],
	state S,
	va handler.VersionedAction,
	meta handler.BlockMeta,
) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("effect panicked: %v", r)
		}
	}()

	return effect.Run(ctx, state, va.Action.Payload, meta)
}

func (h *ActionHandler[S]) isLoaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.loaded
}

func (h *ActionHandler[S]) loadIndexState(ctx context.Context) error {
	state, err := h.gateway.LoadIndexState(ctx)
	if err != nil {
		return &handler.GatewayError{Op: "load", Err: err}
	}

	version := h.registry.First()
	if state != nil && state.HandlerVersion != "" {
		if !h.registry.Has(state.HandlerVersion) {
			return &handler.UnknownVersionError{Version: state.HandlerVersion}
		}
		version = state.HandlerVersion
	}

	h.mu.Lock()
	if state != nil {
		loadedState := *state
		h.indexState = &loadedState
	} else {
		h.indexState = nil
	}
	h.activeVersion = version
	h.loaded = true
	h.mu.Unlock()

	ActiveVersionSet(version)

	if state == nil {
		h.log.Infof("no stored index state, starting fresh with version %s", version)
	} else {
		LastCommittedBlockSet(state.BlockNumber)
		h.log.Infow("loaded index state",
			"block", state.BlockNumber,
			"hash", state.BlockHash,
			"version", version,
		)
	}

	return nil
}

func (h *ActionHandler[S]) commit(block *handler.Block, from, to string) {
	h.mu.Lock()
	h.indexState = &handler.IndexState{
		BlockNumber:    block.BlockNumber,
		BlockHash:      block.BlockHash,
		HandlerVersion: to,
	}
	h.activeVersion = to
	h.loaded = true
	h.mu.Unlock()

	LastCommittedBlockSet(block.BlockNumber)

	if from != to {
		VersionUpgradeInc(from, to)
		ActiveVersionSet(to)
		h.log.Infow("handler version upgraded",
			"from", from,
			"to", to,
			"block", block.BlockNumber,
		)
	}
}

// classifyCommitError keeps the engine's typed errors and treats anything else coming out of the
// unit of work (begin, commit) as a retryable persistence failure.
func classifyCommitError(err error) error {
	var (
		updaterErr *handler.UpdaterError
		versionErr *handler.UnknownVersionError
		gatewayErr *handler.GatewayError
	)

	if errors.As(err, &updaterErr) || errors.As(err, &versionErr) || errors.As(err, &gatewayErr) {
		return err
	}

	return &handler.GatewayError{Op: "commit", Err: err}
}
