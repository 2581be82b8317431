package domain

import "time"

// DecisionRecord is one guard outcome as written to the audit log.
type DecisionRecord struct {
	ID        string // ULID
	RequestID string
	Subject   string // Empty for anonymous callers
	Principal string
	Method    string
	Resource  string
	Allowed   bool
	Reason    string // Decision reason or verification error code
	Rule      string // Matched rule pattern, if any
	Status    int    // HTTP status written
	CreatedAt time.Time
}

// DecisionFilter narrows a decision listing. Zero fields match everything.
type DecisionFilter struct {
	Subject string
	Allowed *bool
	Since   time.Time
	Limit   int
}

// Anonymous reports whether no subject was recorded, either because no
// token was presented or because the token carried no sub.
func (d *DecisionRecord) Anonymous() bool {
	return d.Subject == ""
}
