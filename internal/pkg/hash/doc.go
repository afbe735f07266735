// Package hash provides helpers for hashing and verifying secrets.
//
// Passwords go through a slow, salted algorithm (bcrypt or Argon2id chosen by
// configuration). One-time codes go through a keyed HMAC so the stored digest
// can be compared in constant time without revealing the code.
package hash
