// Package repository defines the data access interface for tablekit users
// and messages.
//
// The actual implementation is in the sqldb subpackage.
//
// # Repository Interface
//
// The Repository interface covers user CRUD, message posting, flagging and
// the joined message feed.
//
// # sqldb Implementation
//
// The sqldb implementation declares the users and messages tables with the
// schema package and runs every operation as an action through the engine,
// so the same code serves SQLite and Postgres. It handles:
//
// - Generated keys on insert
// - Enum, JSON and YAML encoded columns
// - Foreign key constraints and cascade deletes
// - Transactional bulk inserts and deletes
//
// # Schema Migration
//
// The sqldb repository creates missing tables on startup. Existing tables are
// left as they are.
package repository
