package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"go.uber.org/zap"

	"tablekit/internal/domain"
	"tablekit/internal/repository"
	"tablekit/internal/service"
)

// shell holds what every command needs.
type shell struct {
	users    *service.UserService
	messages *service.MessageService
	events   <-chan service.Event
	log      *zap.SugaredLogger
	out      io.Writer
}

type command struct {
	usage string
	help  string
	run   func(sh *shell, ctx context.Context, args []string) error
}

var errQuit = errors.New("quit")

// commands is filled in init; help refers back to it.
var commands map[string]command

func init() {
	commands = map[string]command{
		"adduser":  {"adduser <first> <last> <age>", "create a user", (*shell).addUser},
		"users":    {"users [name] [limit]", "list users, optionally matching a name", (*shell).listUsers},
		"user":     {"user <id>", "show one user", (*shell).showUser},
		"rename":   {"rename <id> <first> [last]", "rename a user", (*shell).rename},
		"deluser":  {"deluser <id>", "delete a user and their messages", (*shell).deleteUser},
		"say":      {"say <user-id> <text...>", "post a message", (*shell).say},
		"messages": {"messages <user-id>", "list a user's messages", (*shell).listMessages},
		"flag":     {"flag <message-id> <normal|pinned|archived>", "flag a message", (*shell).flag},
		"feed":     {"feed [limit]", "newest messages with authors", (*shell).feed},
		"stats":    {"stats", "count users and messages", (*shell).stats},
		"schema":   {"schema", "print the table DDL", (*shell).schema},
		"help":     {"help", "list commands", (*shell).help},
		"quit":     {"quit", "leave", func(*shell, context.Context, []string) error { return errQuit }},
	}
	commands["exit"] = commands["quit"]
}

// dispatch runs one command line and reports whether the loop should end.
func (sh *shell) dispatch(ctx context.Context, line string) bool {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return false
	}
	name, args := strings.ToLower(fields[0]), fields[1:]

	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(sh.out, "unknown command %q, try help\n", name)
		return false
	}
	err := cmd.run(sh, ctx, args)
	sh.drainEvents()
	switch {
	case errors.Is(err, errQuit):
		return true
	case errors.Is(err, errUsage):
		fmt.Fprintf(sh.out, "usage: %s\n", cmd.usage)
	case err != nil:
		fmt.Fprintf(sh.out, "error: %v\n", err)
	}
	return false
}

func (sh *shell) drainEvents() {
	for {
		select {
		case e := <-sh.events:
			sh.log.Debugw("event", "type", e.Type, "payload", e.Payload)
		default:
			return
		}
	}
}

// ============================================================================
// Argument parsing
// ============================================================================

var errUsage = errors.New("usage")

func parseInt(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	return n, nil
}

func parseUserID(s string) (domain.UserID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q is not a user id", s)
	}
	return domain.UserID(n), nil
}

func parseMessageID(s string) (domain.MessageID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%q is not a message id", s)
	}
	return domain.MessageID(n), nil
}

// ============================================================================
// Users
// ============================================================================

func (sh *shell) addUser(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return errUsage
	}
	age, err := parseInt(args[2])
	if err != nil {
		return err
	}
	u, err := sh.users.CreateUser(ctx, args[0], args[1], age)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "created user %s\n", u)
	return nil
}

func (sh *shell) listUsers(ctx context.Context, args []string) error {
	var f repository.UserFilter
	switch len(args) {
	case 0:
	case 2:
		limit, err := parseInt(args[1])
		if err != nil {
			return err
		}
		f.Limit = limit
		fallthrough
	case 1:
		f.Name = &args[0]
	default:
		return errUsage
	}

	users, err := sh.users.ListUsers(ctx, f)
	if err != nil {
		return err
	}
	if len(users) == 0 {
		fmt.Fprintln(sh.out, "no users")
		return nil
	}
	w := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAGE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%d\n", u.ID, u.FullName(), u.Age)
	}
	return w.Flush()
}

func (sh *shell) showUser(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	u, err := sh.users.GetUser(ctx, id)
	if err != nil {
		return err
	}
	n, err := sh.messages.Count(ctx, &id)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%s (%d messages)\n", u, n)
	return nil
}

func (sh *shell) rename(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		return errUsage
	}
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	last := ""
	if len(args) == 3 {
		last = args[2]
	}
	if err := sh.users.RenameUser(ctx, id, args[1], last); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "renamed user %s\n", id)
	return nil
}

func (sh *shell) deleteUser(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	n, err := sh.users.DeleteUser(ctx, id)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "deleted user %s and %d messages\n", id, n)
	return nil
}

// ============================================================================
// Messages
// ============================================================================

func (sh *shell) say(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return errUsage
	}
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	m, err := sh.messages.Post(ctx, id, strings.Join(args[1:], " "))
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "posted message %s\n", m.ID)
	return nil
}

func (sh *shell) listMessages(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	id, err := parseUserID(args[0])
	if err != nil {
		return err
	}
	msgs, err := sh.messages.ByAuthor(ctx, id)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		fmt.Fprintln(sh.out, "no messages")
		return nil
	}
	w := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPOSTED\tFLAG\tCONTENT")
	for _, m := range msgs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", m.ID, m.PostedAt.Format("2006-01-02 15:04"), m.Flag, m.Content)
	}
	return w.Flush()
}

func (sh *shell) flag(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return errUsage
	}
	id, err := parseMessageID(args[0])
	if err != nil {
		return err
	}
	f, err := domain.ParseFlag(args[1])
	if err != nil {
		return err
	}
	if err := sh.messages.Flag(ctx, id, f); err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "message %s is now %s\n", id, f)
	return nil
}

func (sh *shell) feed(ctx context.Context, args []string) error {
	limit := 20
	switch len(args) {
	case 0:
	case 1:
		n, err := parseInt(args[0])
		if err != nil {
			return err
		}
		limit = n
	default:
		return errUsage
	}

	items, err := sh.messages.Feed(ctx, limit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Fprintln(sh.out, "no messages")
		return nil
	}
	for _, it := range items {
		fmt.Fprintf(sh.out, "[%s] %s: %s\n", it.Message.PostedAt.Format("2006-01-02 15:04"), it.Author.FullName(), it.Message.Content)
	}
	return nil
}

// ============================================================================
// Misc
// ============================================================================

func (sh *shell) stats(ctx context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	s, err := sh.users.Stats(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(sh.out, "%d users, %d messages\n", s.Users, s.Messages)
	return nil
}

func (sh *shell) schema(_ context.Context, args []string) error {
	if len(args) != 0 {
		return errUsage
	}
	stmts, err := sh.users.Schema()
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		fmt.Fprintf(sh.out, "%s;\n", stmt)
	}
	return nil
}

func (sh *shell) help(context.Context, []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		if name != "exit" {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	w := tabwriter.NewWriter(sh.out, 0, 4, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%s\n", commands[name].usage, commands[name].help)
	}
	return w.Flush()
}
