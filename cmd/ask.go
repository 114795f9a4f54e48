package cmd

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/glamour"
	"github.com/google/uuid"

	"github.com/kofiasare/sankofa/internal/app"
	"github.com/kofiasare/sankofa/internal/chat"
	"github.com/kofiasare/sankofa/internal/config"
	"github.com/kofiasare/sankofa/internal/log"
	"github.com/kofiasare/sankofa/internal/session"
)

const answerWrapWidth = 80

// askOptions is the parsed ask command line.
type askOptions struct {
	question     string
	topK         int
	conversation string
}

// parseAskArgs accepts the question before or after the flags:
//
//	sankofa ask "what is homowo" -k 3
//	sankofa ask -c <id> what does ojekoo mean
func parseAskArgs(args []string) (askOptions, error) {
	askFlags := flag.NewFlagSet("ask", flag.ContinueOnError)
	askFlags.SetOutput(os.Stderr)

	topK := askFlags.Int("k", 0, "Retrieval depth override")
	conversation := askFlags.String("c", "", "Conversation id to continue")

	var words []string
	for len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		words = append(words, args[0])
		args = args[1:]
	}

	if err := askFlags.Parse(args); err != nil {
		return askOptions{}, fmt.Errorf("parsing ask flags: %w", err)
	}
	words = append(words, askFlags.Args()...)

	question := strings.TrimSpace(strings.Join(words, " "))
	if question == "" {
		return askOptions{}, errors.New(`usage: sankofa ask "question" [-k topK] [-c conversation]`)
	}

	return askOptions{
		question:     question,
		topK:         *topK,
		conversation: *conversation,
	}, nil
}

// runAsk answers a single question and exits.
func runAsk(logger log.Logger) error {
	opts, err := parseAskArgs(os.Args[2:])
	if err != nil {
		return err
	}

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

	conversationID, err := resolveConversation(ctx, a.Sessions, opts.conversation, logger)
	if err != nil {
		return err
	}

	reply, err := a.Chat.Ask(ctx, chat.Request{
		Query:          opts.question,
		ConversationID: conversationID,
		TopK:           opts.topK,
	})
	if err != nil {
		return fmt.Errorf("asking: %w", err)
	}

	// Remember the conversation so the next bare ask continues it.
	if err := session.SaveCurrentConversation(reply.ConversationID); err != nil {
		logger.Warn("saving conversation state", "error", err)
	}

	fmt.Println(renderMarkdown(reply.Text))
	return nil
}

// resolveConversation picks the conversation to continue. An explicit -c
// id wins and must be valid. Otherwise the state file's id is used when
// it still exists in the store; anything else starts a new conversation.
func resolveConversation(ctx context.Context, store *session.Store, explicit string, logger log.Logger) (uuid.UUID, error) {
	if explicit != "" {
		id, err := uuid.Parse(explicit)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid conversation id %q: %w", explicit, err)
		}
		return id, nil
	}

	current, err := session.LoadCurrentConversation()
	if err != nil {
		return uuid.Nil, fmt.Errorf("loading conversation state: %w", err)
	}
	if current == nil {
		return uuid.Nil, nil
	}

	exists, err := store.Exists(ctx, *current)
	if err != nil {
		return uuid.Nil, fmt.Errorf("validating conversation: %w", err)
	}
	if !exists {
		logger.Debug("stored conversation no longer exists, starting fresh", "id", *current)
		return uuid.Nil, nil
	}
	return *current, nil
}

// renderMarkdown converts the answer to styled terminal output. Falls
// back to the plain text when rendering is unavailable (pipes, dumb
// terminals).
func renderMarkdown(text string) string {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(answerWrapWidth),
	)
	if err != nil {
		return text
	}

	rendered, err := r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimSuffix(rendered, "\n")
}
