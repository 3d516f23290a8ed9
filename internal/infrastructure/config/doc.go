// Package config loads runtime configuration from environment variables
// using envconfig. Every field has a default, so an empty environment
// yields a working setup that polls local snapshot files once a second.
package config
