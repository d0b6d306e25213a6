// Package config resolves the service runtime configuration from an injected
// environment snapshot, an optional YAML file, and CLI flag overrides.
// Resolution is deterministic and side-effect-free: invalid values fall back
// to documented defaults and surface as warnings instead of errors.
package config
