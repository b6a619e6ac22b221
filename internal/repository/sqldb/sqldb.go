// Package sqldb implements repository.Repository on the tablekit engine.
package sqldb

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"tablekit/internal/action"
	"tablekit/internal/config"
	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
	"tablekit/internal/domain"
	"tablekit/internal/engine"
	"tablekit/internal/query"
	"tablekit/internal/repository"
)

// readAttempts bounds retries of reads failing with a retryable error
const readAttempts = 3

// Repository implements repository.Repository
type Repository struct {
	eng *engine.Engine
	t   *Tables
}

var _ repository.Repository = (*Repository)(nil)

// Open connects to the configured backend and migrates it
func Open(ctx context.Context, cfg config.DatabaseConfig, log *zap.SugaredLogger) (*Repository, error) {
	d, err := dialect.ByName(string(cfg.Driver))
	if err != nil {
		return nil, err
	}
	eng, err := engine.Open(cfg, d, log)
	if err != nil {
		return nil, err
	}
	repo, err := New(ctx, eng)
	if err != nil {
		eng.Close()
		return nil, err
	}
	return repo, nil
}

// New declares the tables for the engine's dialect and creates them if missing
func New(ctx context.Context, eng *engine.Engine) (*Repository, error) {
	t, err := NewTables(eng.Dialect())
	if err != nil {
		return nil, err
	}
	if _, err := engine.Exec(ctx, eng, action.Transactionally(action.CreateSchema(t.Registry))); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Repository{eng: eng, t: t}, nil
}

// Tables exposes the table descriptors
func (r *Repository) Tables() *Tables { return r.t }

// Engine exposes the engine for callers composing their own actions
func (r *Repository) Engine() *engine.Engine { return r.eng }

// ============================================================================
// Users
// ============================================================================

func (r *Repository) AddUser(ctx context.Context, u domain.User) (domain.User, error) {
	if err := u.Validate(); err != nil {
		return domain.User{}, &dberr.ValidationError{Reason: err.Error()}
	}
	return engine.Exec(ctx, r.eng, action.Insert(r.t.Users, u))
}

// AddUsers inserts all of us or none of them
func (r *Repository) AddUsers(ctx context.Context, us []domain.User) ([]domain.User, error) {
	for i, u := range us {
		if err := u.Validate(); err != nil {
			return nil, &dberr.ValidationError{Reason: fmt.Sprintf("user %d: %v", i, err)}
		}
	}
	return engine.Exec(ctx, r.eng, action.Transactionally(action.InsertAll(r.t.Users, us...)))
}

func (r *Repository) byID(id domain.UserID) query.Query[domain.User] {
	return query.From(r.t.Users).Filter(query.Eq(r.t.UserID, id))
}

func (r *Repository) GetUser(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return engine.Exec(ctx, r.eng, action.Retry(action.First(r.byID(id)), readAttempts, nil))
}

func (r *Repository) ListUsers(ctx context.Context, f repository.UserFilter) ([]domain.User, error) {
	q := query.From(r.t.Users)
	q = query.FilterOpt(q, f.Name, func(name string) query.Predicate {
		pattern := "%" + strings.TrimSpace(name) + "%"
		return query.Or(query.Like(r.t.First, pattern), query.Like(r.t.Last, pattern))
	})
	q = query.FilterOpt(q, f.MinAge, func(age int) query.Predicate { return query.Ge(r.t.Age, age) })
	q = query.FilterOpt(q, f.MaxAge, func(age int) query.Predicate { return query.Le(r.t.Age, age) })
	q = q.SortBy(r.t.UserID, query.Asc, query.NullsDefault).Drop(f.Offset)
	if f.Limit > 0 {
		q = q.Take(f.Limit)
	}
	return engine.Exec(ctx, r.eng, action.Retry(action.Read(q), readAttempts, nil))
}

// UserNames lists full names in key order
func (r *Repository) UserNames(ctx context.Context) ([]string, error) {
	names := query.MapProjected(
		query.Pluck2(query.From(r.t.Users).SortBy(r.t.UserID, query.Asc, query.NullsDefault), r.t.First, r.t.Last),
		func(p query.Pair[string, string]) string { return strings.TrimSpace(p.First + " " + p.Second) },
	)
	return engine.Exec(ctx, r.eng, action.ReadProjected(names))
}

func (r *Repository) RenameUser(ctx context.Context, id domain.UserID, first, last string) (bool, error) {
	first, last = strings.TrimSpace(first), strings.TrimSpace(last)
	if first == "" {
		return false, &dberr.ValidationError{Reason: "first name is required"}
	}
	n, err := engine.Exec(ctx, r.eng, action.Update(r.byID(id),
		query.Set(r.t.First, first),
		query.Set(r.t.Last, last),
	))
	return n > 0, err
}

func (r *Repository) DeleteUser(ctx context.Context, id domain.UserID) (bool, int64, error) {
	messages := query.From(r.t.Messages).Filter(query.Eq(r.t.Author, id))
	res, err := engine.Exec(ctx, r.eng, action.Transactionally(
		action.Zip(action.Count(messages), action.Delete(r.byID(id))),
	))
	if err != nil {
		return false, 0, err
	}
	if res.Second == 0 {
		return false, 0, nil
	}
	return true, res.First, nil
}

// ============================================================================
// Messages
// ============================================================================

func (r *Repository) AddMessage(ctx context.Context, m domain.Message) (domain.Message, error) {
	if err := m.Validate(); err != nil {
		return domain.Message{}, &dberr.ValidationError{Reason: err.Error()}
	}
	return engine.Exec(ctx, r.eng, action.Insert(r.t.Messages, m))
}

func (r *Repository) ListMessages(ctx context.Context, author domain.UserID) ([]domain.Message, error) {
	q := query.From(r.t.Messages).
		Filter(query.Eq(r.t.Author, author)).
		SortBy(r.t.PostedAt, query.Asc, query.NullsDefault)
	return engine.Exec(ctx, r.eng, action.Retry(action.Read(q), readAttempts, nil))
}

func (r *Repository) FlagMessage(ctx context.Context, id domain.MessageID, flag domain.Flag) (bool, error) {
	q := query.From(r.t.Messages).Filter(query.Eq(r.t.MessageID, id))
	n, err := engine.Exec(ctx, r.eng, action.Update(q, query.Set(r.t.Flag, flag)))
	return n > 0, err
}

// MessagesWithAuthors returns the newest messages first, archived ones excluded
func (r *Repository) MessagesWithAuthors(ctx context.Context, limit int) ([]repository.FeedItem, error) {
	j := query.Join(r.t.MessageAuthor, r.t.Messages, r.t.Users).
		Filter(query.Ne(r.t.Flag, domain.FlagArchived)).
		SortBy(r.t.PostedAt, query.Desc, query.NullsDefault)
	if limit > 0 {
		j = j.Take(limit)
	}
	feed := action.Map(action.ReadJoined(j), func(pairs []query.Pair[domain.Message, domain.User]) []repository.FeedItem {
		items := make([]repository.FeedItem, len(pairs))
		for i, p := range pairs {
			items[i] = repository.FeedItem{Message: p.First, Author: p.Second}
		}
		return items
	})
	return engine.Exec(ctx, r.eng, action.Retry(feed, readAttempts, nil))
}

func (r *Repository) CountMessages(ctx context.Context, author *domain.UserID) (int64, error) {
	q := query.FilterOpt(query.From(r.t.Messages), author, func(id domain.UserID) query.Predicate {
		return query.Eq(r.t.Author, id)
	})
	return engine.Exec(ctx, r.eng, action.Count(q))
}

func (r *Repository) Stats(ctx context.Context) (repository.Stats, error) {
	counts := action.Zip(action.Count(query.From(r.t.Users)), action.Count(query.From(r.t.Messages)))
	res, err := engine.Exec(ctx, r.eng, counts)
	if err != nil {
		return repository.Stats{}, err
	}
	return repository.Stats{Users: res.First, Messages: res.Second}, nil
}

// ============================================================================
// Lifecycle
// ============================================================================

func (r *Repository) Schema() ([]string, error) {
	return r.t.Registry.CreateStatements()
}

// Close releases resources
func (r *Repository) Close() error {
	return r.eng.Close()
}
