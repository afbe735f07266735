// Package event holds the wire contracts shared between modules over messaging.
package event

import "time"

// TopicOTPIssued carries OTPIssued from identity to notification.
const TopicOTPIssued = "otp_issued"

// HeaderCorrelationID propagates the request correlation id across the broker.
const HeaderCorrelationID = "cID"

// OTPIssued is published after a code is stored. Code is plaintext and must
// only travel to the delivery channel.
type OTPIssued struct {
	EventID       string    `json:"event_id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	Purpose       string    `json:"purpose"`
	Code          string    `json:"code"`
	ExpiryMinutes int       `json:"expiry_minutes"`
	IssuedAt      time.Time `json:"issued_at"`
}
