package sqldb

import (
	"fmt"
	"time"

	"tablekit/internal/codec"
	"tablekit/internal/dialect"
	"tablekit/internal/domain"
	"tablekit/internal/schema"
)

// Tables holds the users and messages descriptors and their typed columns.
// Columns bind to exactly one table, so every Tables value declares its own.
type Tables struct {
	Registry *schema.Registry

	Users       *schema.Table[domain.User]
	UserID      *schema.Column[domain.UserID]
	First       *schema.Column[string]
	Last        *schema.Column[string]
	Age         *schema.Column[int]
	Preferences *schema.Column[domain.Preferences]

	Messages  *schema.Table[domain.Message]
	MessageID *schema.Column[domain.MessageID]
	Content   *schema.Column[string]
	Author    *schema.Column[domain.UserID]
	Flag      *schema.Column[domain.Flag]
	Tags      *schema.Column[[]string]
	PostedAt  *schema.Column[time.Time]

	// MessageAuthor links messages.user_id to users.id; deleting a user
	// deletes their messages.
	MessageAuthor schema.ForeignKey
}

// NewTables declares the tables for dialect d.
func NewTables(d dialect.Dialect) (*Tables, error) {
	codecs := codec.NewRegistry()
	if err := codec.Register[domain.Flag](codecs, domain.FlagCodec()); err != nil {
		return nil, err
	}

	t := &Tables{
		Registry: schema.NewRegistry(codecs, d),

		UserID:      schema.NewColumn[domain.UserID]("id", schema.PrimaryKey(), schema.AutoIncrement()),
		First:       schema.NewColumn[string]("first"),
		Last:        schema.NewColumn[string]("last"),
		Age:         schema.NewColumn[int]("age"),
		Preferences: schema.NewColumnWith[domain.Preferences]("preferences", codec.YAML[domain.Preferences]()),

		MessageID: schema.NewColumn[domain.MessageID]("id", schema.PrimaryKey(), schema.AutoIncrement()),
		Content:   schema.NewColumn[string]("content"),
		Author:    schema.NewColumn[domain.UserID]("user_id"),
		Flag:      schema.NewColumn[domain.Flag]("flag"),
		Tags:      schema.NewColumnWith[[]string]("tags", codec.JSON[[]string]()),
		PostedAt:  schema.NewColumn[time.Time]("posted_at"),
	}

	var err error
	t.Users, err = schema.Define(t.Registry, "users",
		schema.Bind(t.UserID, func(u *domain.User) *domain.UserID { return &u.ID }),
		schema.Bind(t.First, func(u *domain.User) *string { return &u.First }),
		schema.Bind(t.Last, func(u *domain.User) *string { return &u.Last }),
		schema.Bind(t.Age, func(u *domain.User) *int { return &u.Age }),
		schema.Bind(t.Preferences, func(u *domain.User) *domain.Preferences { return &u.Preferences }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to define users: %w", err)
	}

	t.Messages, err = schema.Define(t.Registry, "messages",
		schema.Bind(t.MessageID, func(m *domain.Message) *domain.MessageID { return &m.ID }),
		schema.Bind(t.Content, func(m *domain.Message) *string { return &m.Content }),
		schema.Bind(t.Author, func(m *domain.Message) *domain.UserID { return &m.UserID }),
		schema.Bind(t.Flag, func(m *domain.Message) *domain.Flag { return &m.Flag }),
		schema.Bind(t.Tags, func(m *domain.Message) *[]string { return &m.Tags }),
		schema.Bind(t.PostedAt, func(m *domain.Message) *time.Time { return &m.PostedAt }),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to define messages: %w", err)
	}

	t.MessageAuthor = schema.References("fk_messages_user", t.Author, t.UserID, schema.NoAction, schema.Cascade)
	if err := t.Registry.AddForeignKey(t.MessageAuthor); err != nil {
		return nil, err
	}
	return t, nil
}
