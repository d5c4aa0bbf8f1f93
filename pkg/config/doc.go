// Package config loads typed configuration structs from environment
// variables via caarlos0/env, with optional .env file support for local
// development. Parsed configs are cached per type.
package config
