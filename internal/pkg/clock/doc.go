// Package clock provides a tiny time abstraction.
//
// Code that reasons about expiry windows (OTP lifetime, the trailing issuance
// window) must depend on Clocker instead of calling time.Now() directly, so the
// window edges can be exercised deterministically with a Frozen clock.
package clock
