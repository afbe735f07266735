// Package messaging is a small broker-agnostic publish/consume layer with
// NATS, Kafka and in-process drivers.
package messaging
