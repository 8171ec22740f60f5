package integration

import "errors"

var (
	// Remote errors
	ErrRemoteUnavailable     = errors.New("integration: remote service temporarily unavailable")
	ErrRemoteUnauthorized    = errors.New("integration: remote authentication failed")
	ErrRemoteRejected        = errors.New("integration: remote request rejected")
	ErrRemoteInvalidResponse = errors.New("integration: invalid remote response")

	// Record errors
	ErrMalformedRecord = errors.New("integration: malformed remote record")
	ErrPushRejected    = errors.New("integration: stock push rejected")

	// Shipment errors
	ErrShipmentNotEligible = errors.New("integration: shipment order not shipped or delivered")
	ErrCarrierNotSupported = errors.New("integration: carrier not supported")

	// Run errors
	ErrRunLockHeld    = errors.New("integration: another run of this job is in progress")
	ErrRunLockExpired = errors.New("integration: run lock lost")
)
