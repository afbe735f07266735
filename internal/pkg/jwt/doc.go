// Package jwt issues and verifies HS512 access tokens for authenticated accounts
// and carries verified claims through a request context.
package jwt
