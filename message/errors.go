package message

import "errors"

// ErrInvalidRecord is returned when a mapping cannot be decoded into a
// Message, e.g. a snapshot entry missing its type or content. It signals a
// programming error in the producer of the record, not a payload shape issue.
var ErrInvalidRecord = errors.New("invalid message record")
