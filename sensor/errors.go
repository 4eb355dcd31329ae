package sensor

import "errors"

var (
	// ErrMissingCredentials is reported when a poll finds incomplete connection settings.
	ErrMissingCredentials = errors.New("database credentials are incomplete or missing")

	// ErrNoCaptureToStore tells the host not to persist this poll's output.
	// It is a control signal rather than a failure.
	ErrNoCaptureToStore = errors.New("no capture to store")

	// ErrNoQueryConfigured is returned when the selected role has no statement.
	ErrNoQueryConfigured = errors.New("no query configured")

	// ErrTriggerNotConfigured is returned for a triggered poll on a sensor
	// without both filter and action queries.
	ErrTriggerNotConfigured = errors.New("capture trigger requested but filter and action queries are not both configured")

	// ErrNotImplemented is returned by the command channel.
	ErrNotImplemented = errors.New("not implemented")
)
