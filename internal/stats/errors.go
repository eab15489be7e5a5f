// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package stats

// Error represents an error type for stats pipeline operations.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	// ErrNetworkFailure indicates the stats endpoint could not be reached
	// or answered with a non-success status.
	ErrNetworkFailure Error = "network failure"

	// ErrMalformedResponse indicates the payload is not decodable as a stats payload.
	ErrMalformedResponse Error = "malformed response"

	// ErrMalformedBucketKey indicates a time bucket key does not match "YYYY-MM-DD HH".
	ErrMalformedBucketKey Error = "malformed bucket key"

	// ErrMissingMetric indicates a metric family is absent from the payload.
	// The corresponding section is omitted; it is never surfaced to users.
	ErrMissingMetric Error = "missing metric"

	// ErrSuperseded indicates a response arrived after a newer load was issued
	// and was discarded.
	ErrSuperseded Error = "superseded by a newer request"

	// ErrInvalidRange indicates a malformed or inverted date range.
	ErrInvalidRange Error = "invalid date range"

	// ErrUnknownGranularity indicates an unsupported granularity value.
	ErrUnknownGranularity Error = "unknown granularity"
)
