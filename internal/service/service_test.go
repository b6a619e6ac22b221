package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tablekit/internal/config"
	"tablekit/internal/dberr"
	"tablekit/internal/domain"
	"tablekit/internal/repository/sqldb"
)

func newTestServices(t *testing.T) (*UserService, *MessageService, chan Event) {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "service.db"),
		PoolSize: 2,
	}
	repo, err := sqldb.Open(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("failed to open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	bus := NewEventBus()
	events := make(chan Event, 16)
	bus.Subscribe(events)

	msgs := NewMessageService(repo, bus, nil)
	msgs.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return NewUserService(repo, bus, nil), msgs, events
}

func nextEvent(t *testing.T, events chan Event) Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	default:
		t.Fatal("expected an event")
		return Event{}
	}
}

func TestUserLifecycle(t *testing.T) {
	users, msgs, events := newTestServices(t)
	ctx := context.Background()

	bob, err := users.CreateUser(ctx, "Bob", "Doro", 43)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	if e := nextEvent(t, events); e.Type != EventUserCreated {
		t.Errorf("event = %s, want %s", e.Type, EventUserCreated)
	}

	t.Run("get existing user", func(t *testing.T) {
		got, err := users.GetUser(ctx, bob.ID)
		if err != nil {
			t.Fatalf("GetUser() error = %v", err)
		}
		if got.FullName() != "Bob Doro" {
			t.Errorf("FullName() = %q, want %q", got.FullName(), "Bob Doro")
		}
	})

	t.Run("post and delete cascades", func(t *testing.T) {
		m, err := msgs.Post(ctx, bob.ID, "Hi")
		if err != nil {
			t.Fatalf("Post() error = %v", err)
		}
		if e := nextEvent(t, events); e.Type != EventMessagePosted {
			t.Errorf("event = %s, want %s", e.Type, EventMessagePosted)
		}
		if !m.PostedAt.Equal(msgs.now()) {
			t.Errorf("PostedAt = %v, want %v", m.PostedAt, msgs.now())
		}

		n, err := users.DeleteUser(ctx, bob.ID)
		if err != nil {
			t.Fatalf("DeleteUser() error = %v", err)
		}
		if n != 1 {
			t.Errorf("DeleteUser() cascaded %d messages, want 1", n)
		}
		if e := nextEvent(t, events); e.Type != EventUserDeleted {
			t.Errorf("event = %s, want %s", e.Type, EventUserDeleted)
		}

		count, err := msgs.Count(ctx, nil)
		if err != nil {
			t.Fatalf("Count() error = %v", err)
		}
		if count != 0 {
			t.Errorf("Count() = %d, want 0", count)
		}
	})

	t.Run("deleted user is not found", func(t *testing.T) {
		_, err := users.GetUser(ctx, bob.ID)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("GetUser() error = %v, want ErrNotFound", err)
		}
		if _, err := users.DeleteUser(ctx, bob.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("DeleteUser() error = %v, want ErrNotFound", err)
		}
		if err := users.RenameUser(ctx, bob.ID, "Rob", ""); !errors.Is(err, ErrNotFound) {
			t.Errorf("RenameUser() error = %v, want ErrNotFound", err)
		}
	})
}

func TestCreateUserValidation(t *testing.T) {
	users, _, events := newTestServices(t)

	tests := []struct {
		name  string
		first string
		age   int
	}{
		{"empty first name", "  ", 30},
		{"negative age", "Ann", -1},
		{"implausible age", "Ann", 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := users.CreateUser(context.Background(), tt.first, "Lee", tt.age)
			if !errors.Is(err, dberr.ErrValidation) {
				t.Errorf("CreateUser() error = %v, want validation error", err)
			}
		})
	}

	if len(events) != 0 {
		t.Errorf("failed creates published %d events", len(events))
	}
}

func TestPostToUnknownAuthor(t *testing.T) {
	_, msgs, _ := newTestServices(t)

	_, err := msgs.Post(context.Background(), domain.UserID(42), "anyone there?")
	if !errors.Is(err, dberr.ErrConstraint) {
		t.Errorf("Post() error = %v, want constraint violation", err)
	}
}

func TestFlagAndFeed(t *testing.T) {
	users, msgs, events := newTestServices(t)
	ctx := context.Background()

	ann, err := users.CreateUser(ctx, "Ann", "Lee", 25)
	if err != nil {
		t.Fatalf("CreateUser() error = %v", err)
	}
	m, err := msgs.Post(ctx, ann.ID, "hello #world")
	if err != nil {
		t.Fatalf("Post() error = %v", err)
	}
	for len(events) > 0 {
		<-events
	}

	if err := msgs.Flag(ctx, m.ID, domain.FlagPinned); err != nil {
		t.Fatalf("Flag() error = %v", err)
	}
	if e := nextEvent(t, events); e.Type != EventMessageFlagged {
		t.Errorf("event = %s, want %s", e.Type, EventMessageFlagged)
	}

	feed, err := msgs.Feed(ctx, 10)
	if err != nil {
		t.Fatalf("Feed() error = %v", err)
	}
	if len(feed) != 1 || feed[0].Message.Flag != domain.FlagPinned || feed[0].Author.ID != ann.ID {
		t.Errorf("Feed() = %+v, want one pinned message by %s", feed, ann.ID)
	}

	if err := msgs.Flag(ctx, domain.MessageID(999), domain.FlagArchived); !errors.Is(err, ErrNotFound) {
		t.Errorf("Flag() error = %v, want ErrNotFound", err)
	}
}

func TestEventBusSkipsSlowSubscribers(t *testing.T) {
	bus := NewEventBus()
	slow := make(chan Event)
	fast := make(chan Event, 1)
	bus.Subscribe(slow)
	bus.Subscribe(fast)

	bus.Publish(Event{Type: EventUserCreated})

	select {
	case e := <-fast:
		if e.Type != EventUserCreated {
			t.Errorf("event = %s, want %s", e.Type, EventUserCreated)
		}
	default:
		t.Error("fast subscriber missed the event")
	}
}
