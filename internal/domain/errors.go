package domain

import "fmt"

// ConfigError marks a missing or malformed secret/configuration value.
// It is fatal for the request and never retried automatically.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx upstream response after the one permitted retry.
// Body is the upstream response text; it never contains credential material.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("upstream HTTP %d: %s", e.Status, e.Body)
}

// NetworkError wraps a transport-level failure reaching the upstream.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("upstream network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }
