package repository

import (
	"context"

	"tablekit/internal/domain"
)

// UserFilter narrows ListUsers. Nil fields do not filter.
type UserFilter struct {
	Name   *string // substring of first or last name
	MinAge *int
	MaxAge *int
	Limit  int // 0 = no limit
	Offset int
}

// FeedItem is a message with its author
type FeedItem struct {
	Message domain.Message
	Author  domain.User
}

// Stats counts stored rows
type Stats struct {
	Users    int64
	Messages int64
}

// Repository defines the interface for user and message data access
type Repository interface {
	// User operations
	AddUser(ctx context.Context, u domain.User) (domain.User, error)
	AddUsers(ctx context.Context, us []domain.User) ([]domain.User, error)
	GetUser(ctx context.Context, id domain.UserID) (*domain.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]domain.User, error)
	UserNames(ctx context.Context) ([]string, error)
	RenameUser(ctx context.Context, id domain.UserID, first, last string) (bool, error)
	// DeleteUser removes the user and, by cascade, their messages. It reports
	// whether the user existed and how many messages went with them.
	DeleteUser(ctx context.Context, id domain.UserID) (bool, int64, error)

	// Message operations
	AddMessage(ctx context.Context, m domain.Message) (domain.Message, error)
	ListMessages(ctx context.Context, author domain.UserID) ([]domain.Message, error)
	FlagMessage(ctx context.Context, id domain.MessageID, flag domain.Flag) (bool, error)
	MessagesWithAuthors(ctx context.Context, limit int) ([]FeedItem, error)
	CountMessages(ctx context.Context, author *domain.UserID) (int64, error)

	Stats(ctx context.Context) (Stats, error)

	// Schema returns the DDL of every table
	Schema() ([]string, error)

	// Close releases resources
	Close() error
}
