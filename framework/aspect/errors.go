package aspect

import (
	"errors"
	"fmt"
)

var (
	// ErrChainExhausted means Proceed was called with no handler left. A
	// well-formed chain always ends in its root method, so this is a bug in
	// chain construction or a handler proceeding twice.
	ErrChainExhausted = errors.New("execution chain exhausted")

	// ErrMissingParameter means a required parameter is absent or nil.
	ErrMissingParameter = errors.New("missing required parameter")
)

// ChainStateError reports a Proceed past the end of the chain.
type ChainStateError struct {
	Method   *RootMethod
	Position int
}

func (e *ChainStateError) Error() string {
	return fmt.Sprintf("proceed %s at position %d: %v", e.Method, e.Position, ErrChainExhausted)
}

// Is matches ErrChainExhausted.
func (e *ChainStateError) Is(target error) bool { return target == ErrChainExhausted }
