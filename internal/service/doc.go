// Package service implements the business logic of tablekit on top of the
// repository.
//
// UserService and MessageService validate input, call the repository and
// publish an Event for every change through the EventBus. The command loop
// subscribes to the bus to echo changes; anything else interested in
// changes can subscribe the same way.
//
// Lookups of a single row report a missing row as ErrNotFound rather than a
// nil value, so callers can print a uniform message.
package service
