package domain

import "time"

// terminalStatuses are lead statuses from which no transition may occur,
// with one exception: expiry applies to every non-accepted status.
var terminalStatuses = map[Status]bool{
	StatusAccepted:  true,
	StatusExpired:   true,
	StatusCancelled: true,
}

// IsTerminal returns true if the lead can never change status again.
func IsTerminal(s Status) bool {
	return terminalStatuses[s]
}

// Claimable reports whether a claim attempt is permitted for a lead in the
// given status. A quoted lead with spare capacity still accepts claims.
// Capacity is enforced separately (and atomically) by the admission
// transaction; this is the state gate.
func Claimable(s Status) bool {
	return s == StatusOpen || s == StatusQuoted
}

// QuotableFrom reports whether quote submission may advance the lead to
// quoted. Submission never overrides accepted or expired.
func QuotableFrom(s Status) bool {
	return s == StatusOpen || s == StatusFull
}

// ShouldExpire reports whether the lead is past its outer bound and eligible
// for expiry. Accepted is a sink: expiry never overrides it.
func ShouldExpire(l *Lead, now time.Time) bool {
	if l.Status == StatusAccepted || l.Status == StatusExpired || l.Status == StatusCancelled {
		return false
	}
	return now.After(l.ExpiresAt)
}

// Cancellable reports whether the owning homeowner may still cancel.
func Cancellable(s Status) bool {
	return s == StatusOpen
}
