package config

import "github.com/go-playground/validator/v10"

var v = validator.New()

// validateStruct returns the first validation error on the final Config, or
// nil on success. Resolve calls it after all overlay layers have applied, so
// the process never runs with an out-of-range port or unknown log level.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
