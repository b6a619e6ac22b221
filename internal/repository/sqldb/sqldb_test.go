package sqldb

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/AlekSi/pointer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablekit/internal/config"
	"tablekit/internal/dberr"
	"tablekit/internal/dialect"
	"tablekit/internal/domain"
	"tablekit/internal/repository"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates a file-backed SQLite repository in a temp dir
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "test.db"),
		PoolSize: 2,
	}
	repo, err := Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

var epoch = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func addUser(t *testing.T, repo *Repository, first, last string, age int) domain.User {
	t.Helper()
	u, err := repo.AddUser(context.Background(), domain.NewUser(first, last, age))
	require.NoError(t, err)
	return u
}

func addMessage(t *testing.T, repo *Repository, author domain.UserID, content string, minute int) domain.Message {
	t.Helper()
	m, err := repo.AddMessage(context.Background(), domain.NewMessage(author, content, epoch.Add(time.Duration(minute)*time.Minute)))
	require.NoError(t, err)
	return m
}

// ============================================================================
// User Tests
// ============================================================================

func TestAddAndGetUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	in := domain.NewUser("Bob", "Doro", 43)
	in.Preferences = domain.Preferences{Theme: "dark", Muted: []string{"spam"}, Digest: true}

	stored, err := repo.AddUser(ctx, in)
	require.NoError(t, err)
	assert.True(t, stored.ID.IsSaved())
	assert.False(t, in.ID.IsSaved(), "input must be left untouched")

	got, err := repo.GetUser(ctx, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, stored, *got)
}

func TestGetMissingUserReturnsNil(t *testing.T) {
	repo := newTestRepo(t)

	got, err := repo.GetUser(context.Background(), domain.UserID(404))
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAddUserValidation(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.AddUser(context.Background(), domain.NewUser("", "Doro", 43))
	assert.True(t, errors.Is(err, dberr.ErrValidation))
}

func TestAddUsersIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	first := domain.NewUser("Ann", "Lee", 30)
	first.ID = 5
	second := domain.NewUser("Ben", "Lee", 31)
	second.ID = 5

	_, err := repo.AddUsers(ctx, []domain.User{first, second})
	require.Error(t, err)
	assert.True(t, errors.Is(err, dberr.ErrConstraint), "got %v", err)

	users, err := repo.ListUsers(ctx, repository.UserFilter{})
	require.NoError(t, err)
	assert.Empty(t, users)

	second.ID = 0
	stored, err := repo.AddUsers(ctx, []domain.User{first, second})
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, domain.UserID(5), stored[0].ID)
	assert.True(t, stored[1].ID.IsSaved())
}

func TestListUsersFilters(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bob := addUser(t, repo, "Bob", "Doro", 43)
	ann := addUser(t, repo, "Ann", "Dorsey", 25)
	cal := addUser(t, repo, "Cal", "Smith", 61)

	tests := []struct {
		name   string
		filter repository.UserFilter
		want   []domain.User
	}{
		{"no filter", repository.UserFilter{}, []domain.User{bob, ann, cal}},
		{"name", repository.UserFilter{Name: pointer.ToString("dor")}, []domain.User{bob, ann}},
		{"min age", repository.UserFilter{MinAge: pointer.ToInt(40)}, []domain.User{bob, cal}},
		{"age range", repository.UserFilter{MinAge: pointer.ToInt(30), MaxAge: pointer.ToInt(50)}, []domain.User{bob}},
		{"window", repository.UserFilter{Offset: 1, Limit: 1}, []domain.User{ann}},
		{"offset only", repository.UserFilter{Offset: 2}, []domain.User{cal}},
		{"no match", repository.UserFilter{Name: pointer.ToString("zed")}, []domain.User{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.ListUsers(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUserNames(t *testing.T) {
	repo := newTestRepo(t)
	addUser(t, repo, "Bob", "Doro", 43)
	addUser(t, repo, "Cher", "", 77)

	names, err := repo.UserNames(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Bob Doro", "Cher"}, names)
}

func TestRenameUser(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	bob := addUser(t, repo, "Bob", "Doro", 43)

	ok, err := repo.RenameUser(ctx, bob.ID, "Robert", "Doro-Smith")
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Robert Doro-Smith", got.FullName())
	assert.Equal(t, 43, got.Age)

	ok, err = repo.RenameUser(ctx, domain.UserID(999), "X", "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = repo.RenameUser(ctx, bob.ID, " ", "")
	assert.True(t, errors.Is(err, dberr.ErrValidation))
}

// ============================================================================
// Message Tests
// ============================================================================

func TestDeleteUserCascadesMessages(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bob := addUser(t, repo, "Bob", "Doro", 43)
	addMessage(t, repo, bob.ID, "Hi", 0)

	n, err := repo.CountMessages(ctx, &bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	found, cascaded, err := repo.DeleteUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(1), cascaded)

	n, err = repo.CountMessages(ctx, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	msgs, err := repo.ListMessages(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	found, _, err = repo.DeleteUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestAddMessageUnknownAuthor(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.AddMessage(context.Background(), domain.NewMessage(domain.UserID(77), "orphan", epoch))
	require.Error(t, err)
	assert.True(t, errors.Is(err, dberr.ErrConstraint), "got %v", err)
}

func TestMessageRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	bob := addUser(t, repo, "Bob", "Doro", 43)

	stored := addMessage(t, repo, bob.ID, "Shipping #release today", 3)
	msgs, err := repo.ListMessages(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	got := msgs[0]
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, []string{"release"}, got.Tags)
	assert.True(t, stored.PostedAt.Equal(got.PostedAt), "posted_at %v != %v", stored.PostedAt, got.PostedAt)
}

func TestFlagsRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	bob := addUser(t, repo, "Bob", "Doro", 43)

	for i, flag := range domain.Flags() {
		m := addMessage(t, repo, bob.ID, "message "+flag.String(), i)
		ok, err := repo.FlagMessage(ctx, m.ID, flag)
		require.NoError(t, err)
		assert.True(t, ok)
	}

	msgs, err := repo.ListMessages(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for i, flag := range domain.Flags() {
		assert.Equal(t, flag, msgs[i].Flag)
	}

	ok, err := repo.FlagMessage(ctx, domain.MessageID(999), domain.FlagPinned)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMessagesWithAuthors(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	bob := addUser(t, repo, "Bob", "Doro", 43)
	ann := addUser(t, repo, "Ann", "Lee", 25)
	addMessage(t, repo, bob.ID, "first", 0)
	hidden := addMessage(t, repo, ann.ID, "second", 1)
	addMessage(t, repo, ann.ID, "third", 2)

	_, err := repo.FlagMessage(ctx, hidden.ID, domain.FlagArchived)
	require.NoError(t, err)

	feed, err := repo.MessagesWithAuthors(ctx, 0)
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "third", feed[0].Message.Content)
	assert.Equal(t, ann, feed[0].Author)
	assert.Equal(t, "first", feed[1].Message.Content)
	assert.Equal(t, bob, feed[1].Author)

	feed, err = repo.MessagesWithAuthors(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, feed, 1)
}

func TestStats(t *testing.T) {
	repo := newTestRepo(t)
	bob := addUser(t, repo, "Bob", "Doro", 43)
	addUser(t, repo, "Ann", "Lee", 25)
	addMessage(t, repo, bob.ID, "Hi", 0)

	stats, err := repo.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, repository.Stats{Users: 2, Messages: 1}, stats)
}

// ============================================================================
// Schema Tests
// ============================================================================

func TestSchema(t *testing.T) {
	repo := newTestRepo(t)

	stmts, err := repo.Schema()
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.True(t, strings.HasPrefix(stmts[0], `CREATE TABLE IF NOT EXISTS "users"`))
	assert.Contains(t, stmts[1], `REFERENCES "users" ("id")`)
	assert.Contains(t, stmts[1], "ON DELETE CASCADE")
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "keep.db")
	cfg := config.DatabaseConfig{Driver: config.DriverSQLite, Path: path, PoolSize: 1}
	ctx := context.Background()

	repo, err := Open(ctx, cfg, nil)
	require.NoError(t, err)
	bob, err := repo.AddUser(ctx, domain.NewUser("Bob", "Doro", 43))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(ctx, cfg, nil)
	require.NoError(t, err)
	defer repo.Close()
	got, err := repo.GetUser(ctx, bob.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, bob, *got)
}

func TestNewTablesPerDialect(t *testing.T) {
	for _, d := range []dialect.Dialect{dialect.SQLite{}, dialect.Postgres{}} {
		tables, err := NewTables(d)
		require.NoError(t, err)
		stmts, err := tables.Registry.CreateStatements()
		require.NoError(t, err)
		assert.Len(t, stmts, 2, d.Name())
	}
}
