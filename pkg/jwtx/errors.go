package jwtx

import (
	"errors"
	"fmt"
)

// Verification failures. Callers branch on these with errors.Is; the
// wrapped message carries the detail for logs.
var (
	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrSignatureInvalid = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrNotYetValid      = errors.New("jwtx: token not yet valid")
	ErrIssuerMismatch   = errors.New("jwtx: issuer mismatch")
	ErrAudienceMismatch = errors.New("jwtx: audience mismatch")

	// ErrAlgNotAllowed is a signature failure: the token asked for an
	// algorithm outside the allow-list, so no key is ever consulted.
	ErrAlgNotAllowed = fmt.Errorf("%w: algorithm not allowed", ErrSignatureInvalid)
)

// Key provider failures.
var (
	ErrKeyNotFound         = errors.New("jwtx: key not found")
	ErrProviderUnavailable = errors.New("jwtx: key provider unavailable")
)

// Code returns a short stable identifier for a verification error, suitable
// for metrics labels and audit records. Unknown errors map to "internal".
func Code(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrMalformed):
		return "malformed"
	case errors.Is(err, ErrAlgNotAllowed):
		return "alg_not_allowed"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrExpired):
		return "expired"
	case errors.Is(err, ErrNotYetValid):
		return "not_yet_valid"
	case errors.Is(err, ErrIssuerMismatch):
		return "issuer_mismatch"
	case errors.Is(err, ErrAudienceMismatch):
		return "audience_mismatch"
	case errors.Is(err, ErrProviderUnavailable):
		return "provider_unavailable"
	case errors.Is(err, ErrKeyNotFound):
		return "key_not_found"
	default:
		return "internal"
	}
}
