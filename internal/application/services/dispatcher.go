package services

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Dispatcher routes inbound messages to the command handler or the OCR pipeline
// and runs them as independent tasks, at most limit at a time.
type Dispatcher struct {
	pipeline  *PipelineService
	commands  *CommandService
	audience  application.AudienceStore
	languages *LanguagePrefs
	messenger application.Messenger
	group     *errgroup.Group
	logger    *slog.Logger
}

func NewDispatcher(
	pipeline *PipelineService,
	commands *CommandService,
	audience application.AudienceStore,
	languages *LanguagePrefs,
	messenger application.Messenger,
	limit int,
	logger *slog.Logger,
) *Dispatcher {
	if limit < 1 {
		limit = 1
	}
	g := &errgroup.Group{}
	g.SetLimit(limit)

	return &Dispatcher{
		pipeline:  pipeline,
		commands:  commands,
		audience:  audience,
		languages: languages,
		messenger: messenger,
		group:     g,
		logger:    logger,
	}
}

// Submit schedules msg and returns once a worker slot is free. The task keeps
// running after ctx's caller returns, so ctx should outlive the request that
// delivered the message.
func (d *Dispatcher) Submit(ctx context.Context, msg *domain.InboundMessage) {
	d.group.Go(func() error {
		d.Dispatch(ctx, msg)
		return nil
	})
}

// Wait blocks until every submitted message has reached a terminal state.
func (d *Dispatcher) Wait() {
	_ = d.group.Wait()
}

// Dispatch handles msg synchronously.
func (d *Dispatcher) Dispatch(ctx context.Context, msg *domain.InboundMessage) (out *Outcome) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling message",
				"message_id", msg.ID,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			out = &Outcome{MessageID: msg.ID, Err: fmt.Errorf("panic: %v", r)}
			d.apologize(ctx, msg)
		}
	}()

	if msg.SenderID != 0 {
		if err := d.audience.AddUser(ctx, msg.SenderID); err != nil {
			d.logger.Warn("failed to record user",
				"user_id", msg.SenderID,
				"error", err,
			)
		}
	}

	if _, _, isCommand := msg.Command(); isCommand && !msg.HasImage() {
		return d.commands.Handle(ctx, msg)
	}

	if msg.LanguageHint == "" {
		if lang := d.languages.Get(msg.ChatID); lang != "" {
			msg = msg.WithLanguageHint(lang)
		}
	}

	out = d.pipeline.Process(ctx, msg)
	d.logger.Info("message processed",
		"message_id", msg.ID,
		"state", out.State,
		"failure", out.Failure,
	)
	return out
}

func (d *Dispatcher) apologize(ctx context.Context, msg *domain.InboundMessage) {
	if msg.ChatID == 0 {
		return
	}
	err := d.messenger.Send(ctx, application.OutgoingMessage{ChatID: msg.ChatID, Text: replyGenericApology})
	if err != nil {
		d.logger.Warn("failed to send apology", "message_id", msg.ID, "error", err)
	}
}
