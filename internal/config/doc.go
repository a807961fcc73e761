// Package config provides configuration loading and validation for the voice
// conversation client. It handles YAML-based configuration with struct
// validation and supports a BACKEND_URL environment override for the
// conversation backend endpoint.
package config
