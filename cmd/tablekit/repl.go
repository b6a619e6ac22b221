package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/peterh/liner"
)

// repl reads commands until quit or EOF.
func (sh *shell) repl(ctx context.Context) error {
	lin := liner.NewLiner()
	defer lin.Close()
	lin.SetCtrlCAborts(true)
	lin.SetCompleter(func(line string) []string {
		var out []string
		for name := range commands {
			if strings.HasPrefix(name, strings.ToLower(line)) {
				out = append(out, name)
			}
		}
		sort.Strings(out)
		return out
	})

	fmt.Fprintln(sh.out, `tablekit: type "help" for commands`)
	for {
		got, err := lin.Prompt("tablekit> ")
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, liner.ErrPromptAborted) {
				fmt.Fprintln(sh.out)
				return nil
			}
			return fmt.Errorf("failed to read prompt: %w", err)
		}
		line := strings.TrimSpace(got)
		if line == "" {
			continue
		}
		lin.AppendHistory(line)

		if quit := sh.dispatch(ctx, line); quit {
			return nil
		}
	}
}
