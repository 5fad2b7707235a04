package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// SettingsStore is the persistent key/value storage behind PromptStore.
type SettingsStore interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// PromptStore owns the active system prompt: the stored override when one
// exists, DefaultSystemPrompt otherwise. Mutations are written through to the
// settings store before the active value changes.
type PromptStore struct {
	settings SettingsStore
	key      string

	mu       sync.RWMutex
	active   string
	override bool
}

func NewPromptStore(settings SettingsStore, key string) (*PromptStore, error) {
	if settings == nil {
		return nil, errors.New("usecase: settings store must not be nil")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("usecase: prompt key must not be empty")
	}
	return &PromptStore{
		settings: settings,
		key:      key,
		active:   DefaultSystemPrompt,
	}, nil
}

// Load reads the persisted override. On failure the default stays active and
// the error is returned for the caller to report.
func (p *PromptStore) Load(ctx context.Context) error {
	value, ok, err := p.settings.Get(ctx, p.key)
	if err != nil {
		return newError(ErrorInternal, "prompt_load_error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if ok && strings.TrimSpace(value) != "" {
		p.active = value
		p.override = true
		return nil
	}
	p.active = DefaultSystemPrompt
	p.override = false
	return nil
}

// Get returns the active system prompt.
func (p *PromptStore) Get() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.active
}

// IsDefault reports whether no override is active.
func (p *PromptStore) IsDefault() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.override
}

// Set persists text as the override and makes it active. Blank text is
// rejected with ErrorEmptyInput and leaves the active value untouched.
func (p *PromptStore) Set(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return newError(ErrorEmptyInput, "empty_prompt", nil)
	}
	if err := p.settings.Put(ctx, p.key, text); err != nil {
		return newError(ErrorInternal, "prompt_write_error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = text
	p.override = true
	return nil
}

// Reset removes the stored override and reverts to DefaultSystemPrompt.
func (p *PromptStore) Reset(ctx context.Context) error {
	if err := p.settings.Delete(ctx, p.key); err != nil {
		return newError(ErrorInternal, "prompt_delete_error", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.active = DefaultSystemPrompt
	p.override = false
	return nil
}
