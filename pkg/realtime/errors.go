package realtime

import "errors"

var (
	// ErrBusClosed is returned for operations on a closed bus.
	ErrBusClosed = errors.New("realtime: bus is closed")

	// ErrJoinRequired is returned by transports when an endpoint tries to
	// receive events before declaring its recipient.
	ErrJoinRequired = errors.New("realtime: endpoint has not joined a recipient")
)
