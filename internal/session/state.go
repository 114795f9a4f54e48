package session

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	stateDir  = ".sankofa"
	stateFile = "current_conversation"
)

// StateFilePath returns the path of the current-conversation state file,
// creating ~/.sankofa if needed.
func StateFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}

	stateDirPath := filepath.Join(homeDir, stateDir)
	if err := os.MkdirAll(stateDirPath, 0o750); err != nil {
		return "", fmt.Errorf("creating state directory: %w", err)
	}
	return filepath.Join(stateDirPath, stateFile), nil
}

// LoadCurrentConversation returns the conversation id recorded by the last
// CLI turn, or nil when none is recorded. A missing state file is not an
// error.
func LoadCurrentConversation() (*uuid.UUID, error) {
	filePath, err := StateFilePath()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, nil
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid conversation id in state file: %w", err)
	}
	return &id, nil
}

// SaveCurrentConversation records id as the conversation to continue.
func SaveCurrentConversation(id uuid.UUID) error {
	filePath, err := StateFilePath()
	if err != nil {
		return err
	}
	if err := os.WriteFile(filePath, []byte(id.String()), 0o600); err != nil {
		return fmt.Errorf("writing state file: %w", err)
	}
	return nil
}

// ClearCurrentConversation removes the state file. Idempotent.
func ClearCurrentConversation() error {
	filePath, err := StateFilePath()
	if err != nil {
		return err
	}
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing state file: %w", err)
	}
	return nil
}
