package channel

import "errors"

// ErrInvalidConfig is returned when an adapter is constructed with
// incomplete provider configuration.
var ErrInvalidConfig = errors.New("channel: invalid adapter configuration")
