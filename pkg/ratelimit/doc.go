// Package ratelimit provides a fixed-window rate limiter with pluggable
// storage: in-process for tests and single instances, Redis for shared
// limits across a fleet.
package ratelimit
