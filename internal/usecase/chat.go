package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"dinner-agent/internal/domain"
)

// CompletionClient produces assistant text for one stateless request.
type CompletionClient interface {
	Configured(ctx context.Context) error
	Complete(ctx context.Context, systemPrompt, userText string) (string, error)
}

// PromptGetter returns the system prompt to send with the next request.
type PromptGetter interface {
	Get() string
}

// credentialTimeout bounds a key lookup, which may be a network call.
const credentialTimeout = 10 * time.Second

type Outcome string

const (
	OutcomeIgnored      Outcome = "ignored"
	OutcomeUnconfigured Outcome = "unconfigured"
	OutcomeSending      Outcome = "sending"
	OutcomeAnswered     Outcome = "answered"
	OutcomeFailed       Outcome = "failed"
)

// SubmitOutput is the result of one request cycle. Err carries the usecase
// error for unconfigured and failed cycles; the transcript already holds the
// user-facing message either way.
type SubmitOutput struct {
	RequestID string
	Outcome   Outcome
	Reply     domain.Message
	Err       error
}

// ChatService runs request cycles against a CompletionClient and records
// them in a Transcript. Cycles may overlap: each one is tagged with its own
// request ID, removes only its own pending entry, and appends its reply when
// it resolves.
type ChatService struct {
	prompts    PromptGetter
	llm        CompletionClient
	transcript *Transcript
	logger     *slog.Logger
}

func NewChatService(prompts PromptGetter, llm CompletionClient, transcript *Transcript, logger *slog.Logger) (*ChatService, error) {
	if prompts == nil {
		return nil, errors.New("usecase: prompt getter must not be nil")
	}
	if llm == nil {
		return nil, errors.New("usecase: completion client must not be nil")
	}
	if transcript == nil {
		return nil, errors.New("usecase: transcript must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{
		prompts:    prompts,
		llm:        llm,
		transcript: transcript,
		logger:     logger,
	}, nil
}

func (s *ChatService) Transcript() *Transcript {
	return s.transcript
}

// Greet appends the welcome notice.
func (s *ChatService) Greet() domain.Message {
	return s.transcript.Append(domain.RoleBot, GreetingText, "")
}

// Submit runs a full cycle and blocks until the completion resolves.
func (s *ChatService) Submit(ctx context.Context, text string) SubmitOutput {
	cycle, out := s.Begin(ctx, text)
	if cycle == nil {
		return out
	}
	return cycle.Run(ctx)
}

// Begin performs the part of a cycle that never blocks: input validation and
// the user entry. It returns a nil Cycle for blank input. The credential
// guard and the completion call happen in Cycle.Run, so an event loop can
// call Begin directly and hand Run to a worker.
func (s *ChatService) Begin(_ context.Context, text string) (*Cycle, SubmitOutput) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, SubmitOutput{Outcome: OutcomeIgnored}
	}

	requestID := newRequestID()
	s.transcript.Append(domain.RoleUser, text, requestID)

	cycle := &Cycle{
		svc:          s,
		requestID:    requestID,
		text:         text,
		systemPrompt: s.prompts.Get(),
	}
	return cycle, SubmitOutput{RequestID: requestID, Outcome: OutcomeSending}
}

// Cycle is an accepted request whose user entry is already in the transcript.
type Cycle struct {
	svc          *ChatService
	requestID    string
	text         string
	systemPrompt string
	pendingID    string
}

func (c *Cycle) RequestID() string {
	return c.requestID
}

// Run checks the credential, shows the pending entry and calls the
// completion client, then resolves the pending entry into an assistant reply
// or an error entry. Without a credential it appends the setup notice and
// makes no completion call.
func (c *Cycle) Run(ctx context.Context) (out SubmitOutput) {
	s := c.svc
	defer func() {
		if r := recover(); r != nil {
			out = c.fail(newError(ErrorInternal, "completion_panic", fmt.Errorf("%s: %v", panicFailureText, r)), panicFailureText)
		}
	}()

	if err := c.checkCredential(ctx); err != nil {
		s.logger.Warn("completion client not configured", "request_id", c.requestID, "err", err)
		reply := s.transcript.Append(domain.RoleBot, MissingKeyText, c.requestID)
		return SubmitOutput{
			RequestID: c.requestID,
			Outcome:   OutcomeUnconfigured,
			Reply:     reply,
			Err:       newError(ErrorConfiguration, "missing_api_key", err),
		}
	}

	pending := s.transcript.Append(domain.RolePending, PendingText, c.requestID)
	c.pendingID = pending.ID

	answer, err := s.llm.Complete(ctx, c.systemPrompt, c.text)
	if err != nil {
		reason := "completion_error"
		if status, ok := upstreamStatusCode(err); ok {
			reason = fmt.Sprintf("completion_status_%d", status)
		}
		return c.fail(newError(ErrorUpstream, reason, err), failureMessage(err))
	}

	s.transcript.RemovePending(c.pendingID)
	reply := s.transcript.Append(domain.RoleAssistant, answer, c.requestID)
	s.logger.Info("completion answered", "request_id", c.requestID, "chars", len(answer))
	return SubmitOutput{RequestID: c.requestID, Outcome: OutcomeAnswered, Reply: reply}
}

func (c *Cycle) checkCredential(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, credentialTimeout)
	defer cancel()
	return c.svc.llm.Configured(ctx)
}

func (c *Cycle) fail(err *Error, message string) SubmitOutput {
	s := c.svc
	if c.pendingID != "" {
		s.transcript.RemovePending(c.pendingID)
	}
	reply := s.transcript.Append(domain.RoleError, failurePrefix+message, c.requestID)
	s.logger.Error("completion failed", "request_id", c.requestID, "reason", err.Reason, "err", err.Err)
	return SubmitOutput{RequestID: c.requestID, Outcome: OutcomeFailed, Reply: reply, Err: err}
}

var newRequestID = func() string {
	return uuid.NewString()
}
