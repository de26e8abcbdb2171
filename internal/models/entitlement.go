package models

import "strconv"

// Entitlement is the attempt balance of a user: either a finite non-negative
// count or unlimited (admin accounts). The zero value is Limited(0).
type Entitlement struct {
	unlimited bool
	remaining int
}

func Limited(n int) Entitlement {
	if n < 0 {
		n = 0
	}
	return Entitlement{remaining: n}
}

func Unlimited() Entitlement {
	return Entitlement{unlimited: true}
}

func (e Entitlement) IsUnlimited() bool { return e.unlimited }

// Remaining returns the finite balance. Only meaningful for limited entitlements.
func (e Entitlement) Remaining() int { return e.remaining }

// Exhausted reports whether a consume would be denied.
func (e Entitlement) Exhausted() bool { return !e.unlimited && e.remaining <= 0 }

func (e Entitlement) String() string {
	if e.unlimited {
		return "unlimited"
	}
	return strconv.Itoa(e.remaining)
}
