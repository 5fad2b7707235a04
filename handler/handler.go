package handler

import (
	"context"
	"errors"
	"log/slog"

	"dinner-agent/internal/usecase"
)

const (
	noteApplied     = "적용 완료! 다음 요청부터 사용됩니다."
	noteEmptyPrompt = "프롬프트가 비어있습니다."
	noteReset       = "기본 프롬프트로 초기화했습니다."
	noteSaveFailed  = "프롬프트 저장에 실패했습니다: "
)

type ChatUseCase interface {
	Begin(ctx context.Context, text string) (*usecase.Cycle, usecase.SubmitOutput)
}

type PromptUseCase interface {
	Get() string
	IsDefault() bool
	Set(ctx context.Context, text string) error
	Reset(ctx context.Context) error
}

// RunFunc completes a cycle started by Submit.
type RunFunc func(ctx context.Context) usecase.SubmitOutput

// Status is the note shown after a prompt panel action.
type Status struct {
	OK   bool
	Note string
}

type Handler struct {
	chat    ChatUseCase
	prompts PromptUseCase
	logger  *slog.Logger
}

func NewHandler(chat ChatUseCase, prompts PromptUseCase, logger *slog.Logger) (*Handler, error) {
	if chat == nil {
		return nil, errors.New("handler: chat usecase must not be nil")
	}
	if prompts == nil {
		return nil, errors.New("handler: prompt usecase must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{chat: chat, prompts: prompts, logger: logger}, nil
}

// Submit records the user entry for text and returns the rest of the cycle
// as a RunFunc, which may block on the network and belongs off the UI
// thread. The RunFunc is nil for blank input.
func (h *Handler) Submit(ctx context.Context, text string) (RunFunc, usecase.SubmitOutput) {
	cycle, out := h.chat.Begin(ctx, text)
	if cycle == nil {
		return nil, out
	}
	h.logger.Debug("request accepted", "request_id", out.RequestID)
	return cycle.Run, out
}

// Ask runs a whole cycle and blocks until it resolves.
func (h *Handler) Ask(ctx context.Context, text string) usecase.SubmitOutput {
	run, out := h.Submit(ctx, text)
	if run == nil {
		return out
	}
	return run(ctx)
}

// Prompt returns the active system prompt and whether it is the built-in default.
func (h *Handler) Prompt() (string, bool) {
	return h.prompts.Get(), h.prompts.IsDefault()
}

func (h *Handler) ApplyPrompt(ctx context.Context, text string) Status {
	if err := h.prompts.Set(ctx, text); err != nil {
		return h.statusFor(err, "apply")
	}
	h.logger.Info("system prompt applied", "chars", len(text))
	return Status{OK: true, Note: noteApplied}
}

func (h *Handler) ResetPrompt(ctx context.Context) Status {
	if err := h.prompts.Reset(ctx); err != nil {
		return h.statusFor(err, "reset")
	}
	h.logger.Info("system prompt reset to default")
	return Status{OK: true, Note: noteReset}
}

func (h *Handler) statusFor(err error, action string) Status {
	var ue *usecase.Error
	if errors.As(err, &ue) {
		switch ue.Code {
		case usecase.ErrorEmptyInput:
			return Status{Note: noteEmptyPrompt}
		case usecase.ErrorInternal:
			h.logger.Error("prompt storage failed", "action", action, "reason", ue.Reason, "err", ue.Err)
			return Status{Note: noteSaveFailed + causeText(ue)}
		}
	}
	h.logger.Error("prompt action failed", "action", action, "err", err)
	return Status{Note: noteSaveFailed + err.Error()}
}

func causeText(ue *usecase.Error) string {
	if ue.Err != nil {
		return ue.Err.Error()
	}
	return ue.Reason
}
