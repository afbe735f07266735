// Package mail sends email messages. Callers depend on the Mail interface;
// SMTP is the production implementation.
package mail
