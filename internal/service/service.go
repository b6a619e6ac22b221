package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"tablekit/internal/domain"
	"tablekit/internal/repository"
)

// ErrNotFound is returned when a looked-up row does not exist.
var ErrNotFound = errors.New("not found")

// ============================================================================
// UserService
// ============================================================================

// UserService provides business logic for users
type UserService struct {
	repo     repository.Repository
	eventBus *EventBus
	log      *zap.SugaredLogger
}

// NewUserService creates a new user service
func NewUserService(repo repository.Repository, eventBus *EventBus, log *zap.SugaredLogger) *UserService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &UserService{repo: repo, eventBus: eventBus, log: log}
}

// CreateUser stores a new user
func (s *UserService) CreateUser(ctx context.Context, first, last string, age int) (domain.User, error) {
	u, err := s.repo.AddUser(ctx, domain.NewUser(first, last, age))
	if err != nil {
		return domain.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	s.log.Infow("user created", "id", u.ID, "name", u.FullName())
	s.eventBus.Publish(Event{Type: EventUserCreated, Payload: u})
	return u, nil
}

// GetUser retrieves a single user by ID
func (s *UserService) GetUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	if u == nil {
		return domain.User{}, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return *u, nil
}

// ListUsers returns users matching f
func (s *UserService) ListUsers(ctx context.Context, f repository.UserFilter) ([]domain.User, error) {
	return s.repo.ListUsers(ctx, f)
}

// Names returns every user's full name
func (s *UserService) Names(ctx context.Context) ([]string, error) {
	return s.repo.UserNames(ctx)
}

// RenameUser changes a user's name
func (s *UserService) RenameUser(ctx context.Context, id domain.UserID, first, last string) error {
	ok, err := s.repo.RenameUser(ctx, id, first, last)
	if err != nil {
		return fmt.Errorf("failed to rename user %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	s.log.Infow("user renamed", "id", id)
	s.eventBus.Publish(Event{
		Type:    EventUserRenamed,
		Payload: map[string]string{"user_id": id.String(), "first": first, "last": last},
	})
	return nil
}

// DeleteUser removes a user and their messages, returning how many messages
// were removed with them.
func (s *UserService) DeleteUser(ctx context.Context, id domain.UserID) (int64, error) {
	ok, cascaded, err := s.repo.DeleteUser(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	if !ok {
		return 0, fmt.Errorf("user %s: %w", id, ErrNotFound)
	}

	s.log.Infow("user deleted", "id", id, "messages", cascaded)
	s.eventBus.Publish(Event{
		Type:    EventUserDeleted,
		Payload: map[string]any{"user_id": id.String(), "messages": cascaded},
	})
	return cascaded, nil
}

// Stats counts users and messages
func (s *UserService) Stats(ctx context.Context) (repository.Stats, error) {
	return s.repo.Stats(ctx)
}

// Schema returns the DDL of every table
func (s *UserService) Schema() ([]string, error) {
	return s.repo.Schema()
}

// ============================================================================
// MessageService
// ============================================================================

// MessageService provides business logic for messages
type MessageService struct {
	repo     repository.Repository
	eventBus *EventBus
	log      *zap.SugaredLogger
	now      func() time.Time
}

// NewMessageService creates a new message service
func NewMessageService(repo repository.Repository, eventBus *EventBus, log *zap.SugaredLogger) *MessageService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &MessageService{repo: repo, eventBus: eventBus, log: log, now: time.Now}
}

// Post stores a message from author. The author must exist.
func (s *MessageService) Post(ctx context.Context, author domain.UserID, content string) (domain.Message, error) {
	m, err := s.repo.AddMessage(ctx, domain.NewMessage(author, content, s.now()))
	if err != nil {
		return domain.Message{}, fmt.Errorf("failed to post message: %w", err)
	}

	s.log.Infow("message posted", "id", m.ID, "author", author, "tags", m.Tags)
	s.eventBus.Publish(Event{Type: EventMessagePosted, Payload: m})
	return m, nil
}

// ByAuthor returns an author's messages, oldest first
func (s *MessageService) ByAuthor(ctx context.Context, author domain.UserID) ([]domain.Message, error) {
	return s.repo.ListMessages(ctx, author)
}

// Flag sets the flag of a message
func (s *MessageService) Flag(ctx context.Context, id domain.MessageID, flag domain.Flag) error {
	ok, err := s.repo.FlagMessage(ctx, id, flag)
	if err != nil {
		return fmt.Errorf("failed to flag message %s: %w", id, err)
	}
	if !ok {
		return fmt.Errorf("message %s: %w", id, ErrNotFound)
	}

	s.eventBus.Publish(Event{
		Type:    EventMessageFlagged,
		Payload: map[string]string{"message_id": id.String(), "flag": flag.String()},
	})
	return nil
}

// Feed returns the newest unarchived messages with their authors
func (s *MessageService) Feed(ctx context.Context, limit int) ([]repository.FeedItem, error) {
	return s.repo.MessagesWithAuthors(ctx, limit)
}

// Count counts messages, optionally of one author
func (s *MessageService) Count(ctx context.Context, author *domain.UserID) (int64, error) {
	return s.repo.CountMessages(ctx, author)
}
