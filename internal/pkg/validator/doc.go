// Package validator provides a small validation abstraction for request and
// domain structs.
//
// Business code should depend on the Validator interface so validation can be
// shared and tested consistently. The go-playground/validator v10
// implementation lives in this package together with the custom rules the
// service relies on (password length, six digit one-time codes).
package validator
