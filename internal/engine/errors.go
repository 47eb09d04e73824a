package engine

import (
	"errors"
	"fmt"
)

// ErrInvalidMove covers every rejected move: wrong phase, wrong player,
// replay, malformed input, failed commitment/proof/signature. The move
// mutates nothing.
var ErrInvalidMove = errors.New("invalid move")

// ErrVoided is surfaced for any move against a voided match. Voiding
// itself (quorum abort, rejected attestation) is a successful transition;
// this error marks the terminal state it leaves behind.
var ErrVoided = errors.New("protocol voided")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidMove, fmt.Sprintf(format, args...))
}

func voidedf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrVoided, fmt.Sprintf(format, args...))
}
