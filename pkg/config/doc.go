// Package config loads typed configuration structs from environment
// variables using `env` field tags, with optional .env file support for
// local development. Every package in the subsystem that needs external
// configuration (storage backends, channel adapters, the recipient
// resolver) declares its own Config struct and loads it here.
package config
