package heatpump

import "fmt"

// ConfigurationError reports an invalid enumerated option or a malformed or
// incomplete test-data set. It is unrecoverable for the run in which it occurs.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("heat pump configuration: %s: %s", e.Field, e.Reason)
}

// UnsupportedSourceTypeError reports a source type that is recognised at
// configuration time but has no runtime implementation.
type UnsupportedSourceTypeError struct {
	Source SourceType
}

func (e *UnsupportedSourceTypeError) Error() string {
	return fmt.Sprintf("heat pump source type %q is not implemented", e.Source)
}

// DuplicateServiceError reports a service name that is already registered
// with the heat pump.
type DuplicateServiceError struct {
	ServiceName string
}

func (e *DuplicateServiceError) Error() string {
	return fmt.Sprintf("heat pump service name already used: %s", e.ServiceName)
}
