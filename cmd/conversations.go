package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/kofiasare/sankofa/internal/app"
	"github.com/kofiasare/sankofa/internal/config"
	"github.com/kofiasare/sankofa/internal/log"
)

const (
	conversationListLimit = 50
	titleColumnWidth      = 40
)

// runConversations prints a table of stored conversations.
func runConversations(logger log.Logger) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Warn("shutdown error", "error", closeErr)
		}
	}()

	conversations, err := a.Sessions.List(ctx, conversationListLimit, 0)
	if err != nil {
		return fmt.Errorf("listing conversations: %w", err)
	}
	if len(conversations) == 0 {
		fmt.Println("No conversations yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tMESSAGES\tLAST ACTIVITY")
	for _, c := range conversations {
		title := c.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			c.ID, truncate(title, titleColumnWidth), c.MessageCount, formatTime(c.LastMessageAt))
	}
	return w.Flush()
}

// truncate shortens s to at most max runes, appending an ellipsis when
// anything was cut.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

// formatTime renders t relative to now for recent activity, absolute
// beyond a week.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		return fmt.Sprintf("%d minutes ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%d hours ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%d days ago", int(diff.Hours()/24))
	default:
		return t.Format("2006-01-02 15:04")
	}
}
