// Package config loads run configuration from YAML.
//
// Unknown fields are rejected so a typo in a run file fails loudly instead of
// silently falling back to a default. Fields absent from the file keep the
// values from Default.
package config
