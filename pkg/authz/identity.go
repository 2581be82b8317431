// Package authz turns verified token claims into an Identity and decides
// what that identity may do.
package authz

import (
	"slices"
	"time"
)

// Identity is the caller as seen by the access policy. It only ever comes
// from Mapper.Map on claims that passed verification, and lives for one
// request.
type Identity struct {
	Subject   string
	Principal string
	Email     string
	Name      string
	Groups    []string

	// Authorities are internal permission identifiers, sorted and unique.
	Authorities []string

	ExpiresAt time.Time
}

// Anonymous reports whether there is no caller at all. Any identity built
// from verified claims is authenticated, even one without a subject.
func (id *Identity) Anonymous() bool {
	return id == nil
}

// HasAuthority reports whether the identity holds authority a.
func (id *Identity) HasAuthority(a string) bool {
	if id == nil {
		return false
	}
	return slices.Contains(id.Authorities, a)
}

// HasAny reports whether the identity holds at least one of want.
func (id *Identity) HasAny(want []string) bool {
	for _, a := range want {
		if id.HasAuthority(a) {
			return true
		}
	}
	return false
}
