// Package repository persists small key/value settings, most importantly the
// system prompt override, in DynamoDB, SQLite, or memory.
package repository

import (
	"errors"
	"strings"
)

// PromptKey is the settings key holding the system prompt override.
const PromptKey = "dev.systemPrompt"

func validateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return errors.New("repository: key must not be empty")
	}
	return nil
}
