package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"dinner-agent/handler"
	"dinner-agent/internal/config"
	"dinner-agent/internal/integrations/openai"
	"dinner-agent/internal/integrations/paramstore"
	"dinner-agent/internal/repository"
	"dinner-agent/internal/usecase"
)

type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	llm        *openai.Client
	prompts    *usecase.PromptStore
	transcript *usecase.Transcript
	chat       *usecase.ChatService
	handler    *handler.Handler
	closers    []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "err", err)
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	// ---- AWS SDK config (only when a component needs it) ----
	var awsCfg aws.Config
	if cfg.NeedsAWS() {
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load AWS config: %w", err)
		}
	}

	// ---- Prompt storage ----
	settings, err := a.openSettings(awsCfg)
	if err != nil {
		return nil, err
	}
	a.prompts, err = usecase.NewPromptStore(settings, repository.PromptKey)
	if err != nil {
		return nil, fmt.Errorf("create prompt store: %w", err)
	}
	if err := a.prompts.Load(ctx); err != nil {
		logger.Warn("stored system prompt unavailable, using default", "store", cfg.Store, "err", err)
	}

	// ---- Completion client ----
	keys, err := a.keySource(awsCfg)
	if err != nil {
		return nil, err
	}
	a.llm, err = openai.NewClient(keys,
		openai.WithBaseURL(cfg.BaseURL),
		openai.WithModel(cfg.Model),
		openai.WithTemperature(cfg.Temperature),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}

	// ---- Usecases and handler ----
	a.transcript = usecase.NewTranscript()
	a.chat, err = usecase.NewChatService(a.prompts, a.llm, a.transcript, logger)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}
	a.handler, err = handler.NewHandler(a.chat, a.prompts, logger)
	if err != nil {
		return nil, fmt.Errorf("create handler: %w", err)
	}
	return a, nil
}

func (a *app) openSettings(awsCfg aws.Config) (usecase.SettingsStore, error) {
	switch a.cfg.Store {
	case config.StoreDynamoDB:
		store, err := repository.NewDynamoStore(awsdynamodb.NewFromConfig(awsCfg), a.cfg.Table)
		if err != nil {
			return nil, fmt.Errorf("create DynamoDB prompt store: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		return repository.NewMemoryStore(), nil
	default:
		store, err := repository.NewSQLiteStore(a.cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("create SQLite prompt store: %w", err)
		}
		a.closers = append(a.closers, store.Close)
		return store, nil
	}
}

// keySource prefers the environment key and falls back to the SSM parameter.
// With neither, the client stays unconfigured and chat shows the setup notice.
func (a *app) keySource(awsCfg aws.Config) (openai.KeySource, error) {
	if a.cfg.APIKey != "" || a.cfg.KeyParam == "" {
		return openai.StaticKey(a.cfg.APIKey), nil
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("create SSM client: %w", err)
	}
	tokens, err := paramstore.NewTokenSource(ssmClient, a.cfg.KeyParam)
	if err != nil {
		return nil, fmt.Errorf("create SSM key source: %w", err)
	}
	return tokens, nil
}
