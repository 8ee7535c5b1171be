package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/metrics"
)

// Outcome describes how a single inbound message was handled.
type Outcome struct {
	MessageID domain.MessageID
	State     domain.MessageState
	History   []domain.MessageState
	Result    *domain.OcrResult
	Record    *domain.PersistedRecord
	// Failure is set when the message ended in StateFailed.
	Failure domain.FailureKind
	Err     error
}

// PipelineService drives one message through extraction, persistence and reply.
type PipelineService struct {
	engine    application.OCREngine
	store     application.RecordStore
	messenger application.Messenger
	language  string
	logger    *slog.Logger
	now       func() time.Time
}

func NewPipelineService(
	engine application.OCREngine,
	store application.RecordStore,
	messenger application.Messenger,
	defaultLanguage string,
	logger *slog.Logger,
) *PipelineService {
	return &PipelineService{
		engine:    engine,
		store:     store,
		messenger: messenger,
		language:  defaultLanguage,
		logger:    logger,
		now:       time.Now,
	}
}

// Process handles msg to a terminal state. Messages without an image are
// answered with a hint and never reach the engine. The returned Outcome is never nil.
func (s *PipelineService) Process(ctx context.Context, msg *domain.InboundMessage) *Outcome {
	lc := domain.NewLifecycle()
	out := &Outcome{MessageID: msg.ID}
	defer func() {
		out.State = lc.State()
		out.History = lc.History()
		metrics.MessageProcessed(string(out.State))
	}()

	if !msg.HasImage() {
		out.Err = s.reply(ctx, msg.ChatID, replySendImage)
		_ = lc.MarkReplied()
		return out
	}

	if err := lc.StartExtracting(); err != nil {
		out.Err = err
		return out
	}

	result := s.extract(ctx, msg)
	out.Result = &result

	if err := lc.StartPersisting(); err != nil {
		out.Err = err
		return out
	}

	record, err := domain.NewPersistedRecord(msg, result, s.now())
	if err == nil {
		err = s.store.Put(ctx, record)
	}
	if err != nil {
		if !domain.IsErrorCode(err, domain.ErrCodeStorageUnavailable) {
			err = domain.NewStorageUnavailableError(err)
		}
		s.logger.Error("failed to persist ocr result",
			"message_id", msg.ID,
			"error", err,
		)
		out.Err = err
		s.fail(ctx, lc, out, msg, domain.FailureStorageUnavailable)
		return out
	}
	out.Record = record

	if !result.Success {
		s.fail(ctx, lc, out, msg, result.Failure)
		return out
	}

	text := replyNoText
	if result.Text != "" {
		text = replyExtracted(result.Text)
	}
	if err := s.reply(ctx, msg.ChatID, text); err != nil {
		s.logger.Error("failed to send ocr reply",
			"message_id", msg.ID,
			"chat_id", msg.ChatID,
			"error", err,
		)
		out.Err = err
		_ = lc.Fail()
		return out
	}

	_ = lc.MarkReplied()
	return out
}

func (s *PipelineService) extract(ctx context.Context, msg *domain.InboundMessage) domain.OcrResult {
	lang := msg.LanguageHint
	if lang == "" {
		lang = s.language
	}

	start := s.now()
	result, err := s.engine.Extract(ctx, msg.Image.Data, lang)
	took := s.now().Sub(start)

	if err != nil {
		result = domain.NewFailedResult(msg.ID, err, took)
		result.Engine = s.engine.Name()
		result.Language = lang
		metrics.OCRFailed(string(result.Failure))
		s.logger.Warn("ocr failed",
			"message_id", msg.ID,
			"failure", result.Failure,
			"error", err,
		)
	} else {
		result.MessageID = msg.ID
		result.Success = true
		if result.Duration == 0 {
			result.Duration = took
		}
		if result.Engine == "" {
			result.Engine = s.engine.Name()
		}
		if result.Language == "" {
			result.Language = lang
		}
		s.logger.Debug("ocr finished",
			"message_id", msg.ID,
			"chars", len(result.Text),
			"duration", result.Duration,
		)
	}

	metrics.OCRCompleted(result.Engine, result.Success, result.Duration)
	return result
}

// fail moves the message to Failed and sends a best-effort reply naming the failure kind.
func (s *PipelineService) fail(ctx context.Context, lc *domain.Lifecycle, out *Outcome, msg *domain.InboundMessage, kind domain.FailureKind) {
	_ = lc.Fail()
	out.Failure = kind

	if err := s.reply(ctx, msg.ChatID, replyFailure(kind)); err != nil {
		s.logger.Warn("failed to send failure reply",
			"message_id", msg.ID,
			"failure", kind,
			"error", err,
		)
	}
}

func (s *PipelineService) reply(ctx context.Context, chatID int64, text string) error {
	if s.messenger == nil || chatID == 0 {
		return nil
	}
	for _, chunk := range splitMessage(text) {
		if err := s.messenger.Send(ctx, application.OutgoingMessage{ChatID: chatID, Text: chunk}); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
	}
	return nil
}
