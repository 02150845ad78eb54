// Package notifications delivers terminal run events via ntfy.
//
// The service publishes to the topic configured in config.toml and degrades
// to a no-op when no topic is set. Each event class can be toggled
// independently, so an operator can subscribe to errors without hearing about
// every published run.
package notifications
