package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bdobrica/termassist/common/trace"
	"github.com/bdobrica/termassist/internal/termassist/observability"
)

// AssistantName labels the prompt.
const AssistantName = "Claude"

var (
	nameStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEDAB0"))
	chevronStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CE6347"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	noteStyle    = lipgloss.NewStyle().Faint(true)
)

func prompt() string {
	return nameStyle.Render(AssistantName) + " " + chevronStyle.Render("❯ ")
}

func isExit(line string) bool {
	switch line {
	case "exit", "quit", "q":
		return true
	}
	return false
}

// Chat runs the interactive loop on threadID, creating a new thread when it
// is empty. It returns nil on exit, end of input, or context cancellation.
func (a *App) Chat(ctx context.Context, threadID string) error {
	if _, err := a.agentLoop(); err != nil {
		return err
	}
	if threadID == "" {
		threadID = trace.NewThreadID()
	}
	fmt.Fprintln(a.out, noteStyle.Render("thread "+threadID))

	lines := make(chan string)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)
	go func() {
		sc := bufio.NewScanner(a.in)
		sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-done:
				return
			}
		}
		readErr <- sc.Err()
		close(lines)
	}()

	for {
		fmt.Fprint(a.out, prompt())
		var (
			line string
			ok   bool
		)
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.out)
			return nil
		case line, ok = <-lines:
		}
		if !ok {
			fmt.Fprintln(a.out)
			return <-readErr
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if isExit(line) {
			fmt.Fprintln(a.out, nameStyle.Render("Thank you for using termassist."))
			return nil
		}

		res, err := a.Turn(ctx, threadID, line)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				fmt.Fprintln(a.out)
				return nil
			}
			fmt.Fprintln(a.errOut, errorStyle.Render("An error occurred: ")+observability.Scrub(err))
			continue
		}
		if res.Reply != "" {
			fmt.Fprintln(a.out, res.Reply)
		}
		if res.Summarised {
			fmt.Fprintln(a.out, noteStyle.Render("(earlier conversation summarised)"))
		}
	}
}
