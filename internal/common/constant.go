// Package common contains header names and sentinel errors shared by the
// client and the development server.
package common

const (
	// AuthorizationHeaderName carries the bearer credential on authorized requests.
	AuthorizationHeaderName = "Authorization"

	// BearerPrefix precedes the access token in the Authorization header.
	BearerPrefix = "Bearer "

	// RequestIDHeaderName correlates client log lines with backend logs.
	RequestIDHeaderName = "X-Request-ID"
)
