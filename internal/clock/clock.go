// Package clock abstracts the current time so that expiry logic can be
// exercised deterministically in tests.  Production code uses the system
// clock; tests inject a fixed instant.
package clock

import "time"

// Clock supplies the current UTC time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// NewSystem returns a Clock backed by time.Now.
func NewSystem() Clock { return systemClock{} }

func (systemClock) Now() time.Time { return time.Now().UTC() }

type fixedClock struct {
	now time.Time
}

// NewFixed returns a Clock that always reports the same instant.
func NewFixed(t time.Time) Clock { return fixedClock{now: t.UTC()} }

func (f fixedClock) Now() time.Time { return f.now }
