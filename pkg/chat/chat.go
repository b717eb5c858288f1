// Package chat runs one conversational turn: it assembles the persona prompt,
// the session transcript and the new message, asks the model for a reply and
// records the exchange.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/papercomputeco/persona/pkg/eventstream"
	"github.com/papercomputeco/persona/pkg/eventstream/worker"
	"github.com/papercomputeco/persona/pkg/llm"
	"github.com/papercomputeco/persona/pkg/logger"
	"github.com/papercomputeco/persona/pkg/metrics"
	"github.com/papercomputeco/persona/pkg/persona"
	"github.com/papercomputeco/persona/pkg/session"
	"github.com/papercomputeco/persona/pkg/telemetry"
	"github.com/papercomputeco/persona/pkg/utils"
)

// EventSink accepts turn events for asynchronous publishing.
// *worker.Pool satisfies it.
type EventSink interface {
	Enqueue(job worker.Job) bool
}

// Config wires an Orchestrator.
type Config struct {
	Store   session.Store
	Persona persona.Source

	// Completer answers the assembled conversation. Nil means the server has
	// no model credential and every turn fails with ErrMisconfigured.
	Completer llm.Completer

	// Provider and Model identify the remote model.
	Provider    string
	Model       string
	Temperature *float64

	// Events is optional.
	Events EventSink

	Logger *slog.Logger
}

// Orchestrator handles chat turns against a session store.
type Orchestrator struct {
	config Config
	locks  *keyedMutex
	logger *slog.Logger
}

// New creates an Orchestrator. Store and Persona are required.
func New(c Config) (*Orchestrator, error) {
	if c.Store == nil {
		return nil, errors.New("chat: session store is required")
	}
	if c.Persona == nil {
		return nil, errors.New("chat: persona source is required")
	}

	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}

	return &Orchestrator{
		config: c,
		locks:  newKeyedMutex(),
		logger: log,
	}, nil
}

// Configured reports whether a model completer is available.
func (o *Orchestrator) Configured() bool {
	return o.config.Completer != nil
}

// HandleTurn answers userMessage within sessionID's conversation. On success
// the user message and the reply are appended to the transcript, in that
// order. On failure the transcript is left untouched.
//
// Turns for the same session are serialized; different sessions proceed in
// parallel.
func (o *Orchestrator) HandleTurn(ctx context.Context, sessionID, userMessage string) (reply string, err error) {
	ctx, span := telemetry.Tracer().Start(ctx, "chat.turn",
		trace.WithAttributes(
			attribute.String("session.id", sessionID),
			attribute.String("llm.provider", o.config.Provider),
			attribute.String("llm.model", o.config.Model),
		),
	)
	defer span.End()

	defer func() {
		outcome := outcomeFor(err)
		metrics.RecordTurn(outcome)
		span.SetAttributes(attribute.String("chat.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
	}()

	if strings.TrimSpace(sessionID) == "" {
		return "", wrap(ErrInvalidRequest, errors.New("sessionId is required"))
	}
	if strings.TrimSpace(userMessage) == "" {
		return "", wrap(ErrInvalidRequest, errors.New("message is required"))
	}
	if o.config.Completer == nil {
		o.logger.Warn("turn rejected, model not configured", "session_id", sessionID)
		return "", wrap(ErrMisconfigured, ErrNoCredential)
	}

	unlock := o.locks.Lock(sessionID)
	defer unlock()

	sess, err := o.config.Store.GetOrCreate(ctx, sessionID)
	if err != nil {
		o.logger.Error("loading session failed", "session_id", sessionID, "error", err)
		return "", wrap(ErrStoreFailure, err)
	}

	req := o.buildRequest(sess, userMessage)

	started := time.Now()
	resp, err := o.complete(ctx, req)
	completed := time.Now()
	if err != nil {
		o.logger.Error("model call failed",
			"session_id", sessionID,
			"provider", o.config.Provider,
			"error", err,
		)
		return "", wrap(ErrUpstreamFailure, err)
	}

	reply = resp.Message.Content
	turns := []session.Turn{
		session.NewTurn(llm.RoleUser, userMessage),
		session.NewTurn(llm.RoleAssistant, reply),
	}

	if err := o.config.Store.Append(ctx, sessionID, turns...); err != nil {
		o.logger.Error("appending turns failed", "session_id", sessionID, "error", err)
		return "", wrap(ErrStoreFailure, err)
	}

	transcriptLength := len(sess.Turns) + len(turns)
	o.logger.Debug("turn completed",
		"session_id", sessionID,
		"transcript_length", transcriptLength,
		"duration", completed.Sub(started),
		"reply_preview", utils.Truncate(reply, 80),
	)

	o.publish(sessionID, started, completed, turns, transcriptLength)

	return reply, nil
}

// Transcript returns a snapshot of sessionID's turns.
func (o *Orchestrator) Transcript(ctx context.Context, sessionID string) (*session.Session, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, wrap(ErrInvalidRequest, errors.New("session id is required"))
	}

	sess, err := o.config.Store.GetOrCreate(ctx, sessionID)
	if err != nil {
		return nil, wrap(ErrStoreFailure, err)
	}
	return sess, nil
}

func (o *Orchestrator) buildRequest(sess *session.Session, userMessage string) *llm.ChatRequest {
	messages := make([]llm.Message, 0, len(sess.Turns)+2)
	if prompt := o.config.Persona.Prompt(); prompt != "" {
		messages = append(messages, llm.NewTextMessage(llm.RoleSystem, prompt))
	}
	messages = append(messages, sess.Messages()...)
	messages = append(messages, llm.NewTextMessage(llm.RoleUser, userMessage))

	return &llm.ChatRequest{
		Model:       o.config.Model,
		Messages:    messages,
		Temperature: o.config.Temperature,
	}
}

func (o *Orchestrator) complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "llm.complete",
		trace.WithAttributes(
			attribute.String("llm.model", req.Model),
			attribute.Int("llm.messages", len(req.Messages)),
		),
	)
	defer span.End()

	start := time.Now()
	resp, err := o.config.Completer.Complete(ctx, req)
	if err == nil && (resp == nil || resp.Message.Content == "") {
		err = llm.ErrEmptyResponse
	}

	outcome := metrics.OutcomeOK
	if err != nil {
		outcome = metrics.OutcomeUpstreamFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	metrics.ObserveUpstream(o.config.Provider, outcome, time.Since(start))

	if resp != nil && resp.Usage != nil {
		span.SetAttributes(
			attribute.Int("llm.usage.prompt_tokens", resp.Usage.PromptTokens),
			attribute.Int("llm.usage.completion_tokens", resp.Usage.CompletionTokens),
		)
	}

	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (o *Orchestrator) publish(sessionID string, started, completed time.Time, turns []session.Turn, transcriptLength int) {
	if o.config.Events == nil {
		return
	}

	event := eventstream.NewTurnAppendedEvent(sessionID,
		eventstream.EventSource{
			Service:  telemetry.ServiceName,
			Provider: o.config.Provider,
			Model:    o.config.Model,
		},
		started, completed, turns, transcriptLength,
	)
	o.config.Events.Enqueue(worker.Job{Event: event})
}

func outcomeFor(err error) string {
	switch Kind(err) {
	case nil:
		if err != nil {
			return metrics.OutcomeUpstreamFailure
		}
		return metrics.OutcomeOK
	case ErrInvalidRequest:
		return metrics.OutcomeInvalidRequest
	case ErrMisconfigured:
		return metrics.OutcomeMisconfigured
	case ErrUpstreamFailure:
		return metrics.OutcomeUpstreamFailure
	default:
		return metrics.OutcomeStoreFailure
	}
}
