package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"tablekit/internal/config"
	"tablekit/internal/repository/sqldb"
	"tablekit/internal/service"
)

func newTestShell(t *testing.T) (*shell, *bytes.Buffer) {
	t.Helper()
	cfg := config.DatabaseConfig{
		Driver:   config.DriverSQLite,
		Path:     filepath.Join(t.TempDir(), "shell.db"),
		PoolSize: 2,
	}
	repo, err := sqldb.Open(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	bus := service.NewEventBus()
	events := make(chan service.Event, 8)
	bus.Subscribe(events)

	var out bytes.Buffer
	return &shell{
		users:    service.NewUserService(repo, bus, nil),
		messages: service.NewMessageService(repo, bus, nil),
		events:   events,
		log:      zap.NewNop().Sugar(),
		out:      &out,
	}, &out
}

// run dispatches line and returns what it printed.
func run(t *testing.T, sh *shell, out *bytes.Buffer, line string) string {
	t.Helper()
	out.Reset()
	assert.False(t, sh.dispatch(context.Background(), line), "%q should not end the loop", line)
	return out.String()
}

func TestSession(t *testing.T) {
	sh, out := newTestShell(t)

	assert.Equal(t, "created user #1 Bob Doro (43)\n", run(t, sh, out, "adduser Bob Doro 43"))
	assert.Contains(t, run(t, sh, out, "users"), "Bob Doro")
	assert.Equal(t, "posted message 1\n", run(t, sh, out, "say 1 Hi there"))
	assert.Contains(t, run(t, sh, out, "messages 1"), "Hi there")
	assert.Contains(t, run(t, sh, out, "feed"), "Bob Doro: Hi there")
	assert.Equal(t, "message 1 is now pinned\n", run(t, sh, out, "flag 1 pinned"))
	assert.Equal(t, "1 users, 1 messages\n", run(t, sh, out, "stats"))
	assert.Equal(t, "deleted user 1 and 1 messages\n", run(t, sh, out, "deluser 1"))
	assert.Equal(t, "no messages\n", run(t, sh, out, "feed"))
	assert.Contains(t, run(t, sh, out, "user 1"), "not found")
}

func TestCommandErrors(t *testing.T) {
	sh, out := newTestShell(t)

	tests := []struct {
		line string
		want string
	}{
		{"bogus", `unknown command "bogus"`},
		{"adduser Bob", "usage: adduser <first> <last> <age>"},
		{"adduser Bob Doro old", `"old" is not a number`},
		{"adduser Bob Doro 400", "validation error"},
		{"user abc", `"abc" is not a user id`},
		{"say 9 hello", "constraint violation"},
		{"flag 1 loud", "loud"},
		{"rename 7 Rob", "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			assert.Contains(t, run(t, sh, out, tt.line), tt.want)
		})
	}
}

func TestSchemaAndHelp(t *testing.T) {
	sh, out := newTestShell(t)

	ddl := run(t, sh, out, "schema")
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "users"`)
	assert.Contains(t, ddl, `CREATE TABLE IF NOT EXISTS "messages"`)

	help := run(t, sh, out, "help")
	for name := range commands {
		if name == "exit" {
			continue
		}
		assert.True(t, strings.Contains(help, name), "help is missing %s", name)
	}
}

func TestQuit(t *testing.T) {
	sh, _ := newTestShell(t)
	assert.True(t, sh.dispatch(context.Background(), "quit"))
	assert.True(t, sh.dispatch(context.Background(), "EXIT"))
}
