// Package config loads the server configuration from the `server:` section of
// config.yaml.
//
// Load fills defaults, unmarshals YAML over them and validates the result.
// Watch re-runs Load whenever the file changes; callers decide which fields
// they apply at runtime.
package config
