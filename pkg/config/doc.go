// Package config provides configuration management for Chronicle.
//
// Configuration is loaded from a YAML file, defaults are applied for any
// unset fields, CHRONICLE_* environment variables are layered on top, and
// the final result is validated. A nil or missing file is not an error
// path callers need to special-case: NewDefaultConfig returns a fully
// usable configuration.
package config
