package otp

import "errors"

var (
	// ErrNoCompletionHandler is returned by New when Options.OnComplete is nil.
	// A field that can never report its value is a misconfigured host.
	ErrNoCompletionHandler = errors.New("otp: completion handler is required")

	// ErrNoScheduler is returned by New when Options.Scheduler is nil.
	ErrNoScheduler = errors.New("otp: scheduler is required")

	// ErrInvalidLength is returned by New when Options.Length is less than one.
	ErrInvalidLength = errors.New("otp: length must be at least 1")

	// ErrInvalidTiming is returned by New for negative burst or abandonment windows.
	ErrInvalidTiming = errors.New("otp: timing windows must not be negative")
)
