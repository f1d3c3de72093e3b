// Package realtime is the in-app delivery bus: a per-recipient registry of
// live endpoints that receives a lightweight event whenever a notification
// is created, independent of transport channel outcomes.
//
// The bus holds routing state only. Events published for a recipient with no
// open endpoints are dropped; the persisted notification record is the
// source of truth a client fetches on reconnect.
//
// Two implementations are provided: MemoryBus for a single process and
// RedisBus (Redis pub/sub) for multi-instance deployments. WSHandler exposes
// a bus over websockets for browser clients:
//
//	bus := realtime.NewMemoryBus()
//	defer bus.Close()
//	http.Handle("/ws/notifications", realtime.NewWSHandler(bus))
//
//	ep, _ := bus.Join(ctx, "user-123")
//	for ev := range ep.Events() {
//	    // update unread badge
//	}
package realtime
