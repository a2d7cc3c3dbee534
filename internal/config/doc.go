// Package config loads server, database and sweeper settings from defaults,
// an optional config.yaml and TODO_-prefixed environment variables, and
// validates them before the server starts.
package config
