package conversation

import "errors"

// ErrInvalidTurn is returned when a snapshot record cannot be decoded into a Turn.
var ErrInvalidTurn = errors.New("invalid conversation turn")
