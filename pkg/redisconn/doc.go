// Package redisconn connects the notification subsystem to Redis.
//
// One client serves two consumers: the realtime.RedisBus that fans events out
// across service instances, and the identity.CachedResolver contact cache.
// Connect retries until the server is reachable or the connect timeout
// expires, so a service starting alongside Redis does not crash-loop.
//
// Usage:
//
//	var cfg redisconn.Config
//	if err := config.Load(&cfg); err != nil {
//		// handle error
//	}
//
//	client, err := redisconn.Connect(ctx, cfg)
//	if err != nil {
//		// handle error
//	}
//	defer client.Close()
//
//	bus := realtime.NewRedisBus(client)
package redisconn
