// This file implements utilities for parsing and validating HTTP request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"ledger/internal/core"
)

// MaxBodyBytes bounds JSON bodies and import uploads.
const MaxBodyBytes = 1 << 20

// ErrMalformedBody is returned for bodies that are not the expected JSON.
var ErrMalformedBody = errors.New("malformed request body")

// DecodeJSON reads one JSON value from the body into dst. Domain decoding
// failures such as a bad amount are returned as is so they map to 422;
// everything else wraps ErrMalformedBody.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrInvalidAmount) || errors.Is(err, core.ErrValidation) {
			return err
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("%w: body exceeds %d bytes", ErrMalformedBody, maxErr.Limit)
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", ErrMalformedBody)
		}
		return fmt.Errorf("%w: %v", ErrMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON value", ErrMalformedBody)
	}
	return nil
}

// writeDecodeError writes 400 for malformed bodies and the domain mapping
// otherwise.
func writeDecodeError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrMalformedBody) {
		BadRequestError(err.Error()).Write(w)
		return
	}
	ErrorFor(err).Write(w)
}

// ParseTransactionType reads the optional "type" query parameter. An empty
// value means no filter.
func ParseTransactionType(r *http.Request) (core.TransactionType, bool) {
	v := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("type")))
	if v == "" {
		return "", false
	}
	return core.TransactionType(v), true
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
