package redisconn

import "errors"

var (
	ErrInvalidConnectionURL = errors.New("redisconn: failed to parse redis connection URL")
	ErrNotReady             = errors.New("redisconn: redis did not become ready within the connect timeout")
	ErrHealthcheckFailed    = errors.New("redisconn: redis healthcheck failed")
)
