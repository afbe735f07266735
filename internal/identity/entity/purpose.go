package entity

import "strings"

// Purpose is the flow a one-time code belongs to.
type Purpose int16

const (
	PurposeUnknown      Purpose = 0
	PurposeRegistration Purpose = 1
	PurposeLogin        Purpose = 2
)

func (p Purpose) String() string {
	switch p {
	case PurposeRegistration:
		return "registration"
	case PurposeLogin:
		return "login"
	default:
		return "unknown"
	}
}

func (p Purpose) IsValid() bool {
	return p == PurposeRegistration || p == PurposeLogin
}

// ParsePurpose accepts the String form, case-insensitively.
func ParsePurpose(s string) Purpose {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "registration":
		return PurposeRegistration
	case "login":
		return PurposeLogin
	default:
		return PurposeUnknown
	}
}
