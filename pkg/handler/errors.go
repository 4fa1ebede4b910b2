package handler

import (
	"errors"
	"fmt"
	"strings"
)

// ForkMessage is the message carried by every ForkDetectedError.
const ForkMessage = "Block hashes do not match; block not part of current chain."

// ErrForkDetected matches any *ForkDetectedError with errors.Is.
var ErrForkDetected = errors.New(ForkMessage)

// ForkDetectedError is returned when a block does not extend the committed chain.
type ForkDetectedError struct {
	BlockNumber       uint64
	BlockHash         string
	PreviousBlockHash string
	CommittedHash     string
}

func (e *ForkDetectedError) Error() string {
	return ForkMessage
}

// Is reports whether target is ErrForkDetected.
func (e *ForkDetectedError) Is(target error) bool {
	return target == ErrForkDetected
}

// NewForkError creates a ForkDetectedError for block against the committed bookmark hash.
func NewForkError(block *Block, committedHash string) error {
	return &ForkDetectedError{
		BlockNumber:       block.BlockNumber,
		BlockHash:         block.BlockHash,
		PreviousBlockHash: block.PreviousBlockHash,
		CommittedHash:     committedHash,
	}
}

// UnknownVersionError is returned when a version name is not registered.
// Action is empty when the name came from the stored bookmark.
type UnknownVersionError struct {
	Version     string
	Action      string
	BlockNumber uint64
}

func (e *UnknownVersionError) Error() string {
	if e.Action == "" {
		return fmt.Sprintf("unknown handler version %q in stored index state", e.Version)
	}

	return fmt.Sprintf("unknown handler version %q requested by action %s at block %d",
		e.Version, e.Action, e.BlockNumber)
}

// UpdaterError wraps a failure returned by an updater. The block is not committed.
type UpdaterError struct {
	Action      string
	Version     string
	BlockNumber uint64
	Err         error
}

func (e *UpdaterError) Error() string {
	return fmt.Sprintf("updater for %s (version %s) failed at block %d: %v",
		e.Action, e.Version, e.BlockNumber, e.Err)
}

func (e *UpdaterError) Unwrap() error {
	return e.Err
}

// GatewayError wraps a failure to load or save the bookmark. The same block can be retried.
type GatewayError struct {
	Op  string
	Err error
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("index state %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error {
	return e.Err
}

// EffectFailure is a single failed effect.
type EffectFailure struct {
	Action  string
	Version string
	Err     error
}

// EffectsError reports effects that failed after their block was committed.
type EffectsError struct {
	BlockNumber uint64
	Failures    []EffectFailure
}

func (e *EffectsError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s@%s: %v", f.Action, f.Version, f.Err))
	}

	return fmt.Sprintf("%d effect(s) failed at block %d: %s", len(e.Failures), e.BlockNumber, strings.Join(parts, "; "))
}

func (e *EffectsError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}

	return errs
}

// IsRetryable reports whether err leaves the block uncommitted and may succeed on a retry.
// Effect failures never are: their block is already committed.
func IsRetryable(err error) bool {
	var effectsErr *EffectsError
	if errors.As(err, &effectsErr) {
		return false
	}

	var gatewayErr *GatewayError
	return errors.As(err, &gatewayErr)
}
