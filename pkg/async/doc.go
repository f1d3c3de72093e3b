// Package async provides a minimal Future primitive for fan-out work.
//
// The notification dispatcher launches one asynchronous attempt per delivery
// channel and waits for all of them to settle; bulk send does the same per
// recipient. The primitives here keep that pattern explicit without exposing
// raw goroutine and channel plumbing at every call site.
//
//	future := async.Async(ctx, channel, attemptFn)
//	results, err := async.WaitAll(futures...)
package async
