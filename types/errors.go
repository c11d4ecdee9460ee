package types

import "errors"

var (
	// ErrUnknownSeverity is returned when a severity name is not recognized
	ErrUnknownSeverity = errors.New("unknown severity")

	// ErrUnknownAlertSeverity is returned when an alert severity name is not recognized
	ErrUnknownAlertSeverity = errors.New("unknown alert severity")
)
