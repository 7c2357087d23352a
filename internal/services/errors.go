package services

import "errors"

var (
	// ErrCalendarNotFound means the share code does not resolve to any
	// calendar. Distinct from ErrShareCodeExpired so clients can tell
	// "check your code" apart from "request a new code".
	ErrCalendarNotFound = errors.New("shared calendar not found")

	// ErrShareCodeExpired means the code resolved but its expiry has passed.
	ErrShareCodeExpired = errors.New("share code has expired")

	// ErrPasswordMismatch means a mutation was attempted against a
	// password-protected calendar without the right password.
	ErrPasswordMismatch = errors.New("edit password mismatch")

	// ErrScheduleNotFound means a share-code-scoped schedule operation named
	// a localId with no live row behind it.
	ErrScheduleNotFound = errors.New("schedule not found")

	// ErrDeviceRequired means a request arrived without a device identifier.
	ErrDeviceRequired = errors.New("deviceId is required")

	// ErrInvalidDeviceToken means the presented device capability token did
	// not verify, or names a different device than the request claims.
	ErrInvalidDeviceToken = errors.New("invalid device token")
)
