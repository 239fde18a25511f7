// Package config loads the meloconv TOML configuration, fills defaults for
// missing values, and validates the result before any export runs.
package config
