// Package vendorapi holds the error taxonomy shared by the marketplace
// vendor clients. The pipeline classifies failures with errors.As, so each
// kind is a distinct type rather than a wrapped sentinel.
package vendorapi

import "fmt"

// TransportError covers network errors, timeouts, and non-2xx responses.
type TransportError struct {
	Vendor     string
	StatusCode int // 0 when the request never completed
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Vendor, e.StatusCode)
	}
	return fmt.Sprintf("%s: request failed: %v", e.Vendor, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is an application-level failure the vendor reports inside a
// successful HTTP response.
type APIError struct {
	Vendor  string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: %s", e.Vendor, e.Message)
}

// MalformedResponseError means the response body was not valid JSON in the
// shape the vendor documents.
type MalformedResponseError struct {
	Vendor string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: malformed response: %v", e.Vendor, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
