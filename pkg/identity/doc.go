// Package identity integrates the recipient resolver contract with the
// platform user service: HTTPResolver maps a recipient id to email, phone,
// and device tokens over the user service's JSON API, and CachedResolver
// adds a Redis contact cache in front of it for fan-out dispatches.
package identity
