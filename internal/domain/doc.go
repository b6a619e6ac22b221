// Package domain defines the entities the tablekit harness stores.
//
// # Core Types
//
// User is a person with a generated key, a name and an age. Preferences are
// a small document stored alongside.
//
// Message is a line of text posted by a user. Its UserID is typed by the
// owning entity, so a message key can never be passed where a user key is
// expected.
//
// # Flags
//
// Flag is a closed set of message markers (normal, pinned, archived) stored
// as text tags. FlagCodec describes the mapping; an unknown stored tag fails
// the read of that row instead of decoding to a default.
//
// # Design Principles
//
// - Plain value types, copied freely
// - Keys are schema.PK newtypes and zero until stored
// - Validation lives next to the type it checks
package domain
