package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/DanielPopoola/ocrbot/internal/metrics"
)

// CommandService answers slash commands. Every command takes a message straight
// from Received to Replied; the OCR engine is never involved.
type CommandService struct {
	audience   application.AudienceStore
	records    application.RecordStore
	messenger  application.Messenger
	broadcasts *BroadcastService
	languages  *LanguagePrefs
	isAdmin    func(userID int64) bool
	logger     *slog.Logger
}

func NewCommandService(
	audience application.AudienceStore,
	records application.RecordStore,
	messenger application.Messenger,
	broadcasts *BroadcastService,
	languages *LanguagePrefs,
	isAdmin func(userID int64) bool,
	logger *slog.Logger,
) *CommandService {
	return &CommandService{
		audience:   audience,
		records:    records,
		messenger:  messenger,
		broadcasts: broadcasts,
		languages:  languages,
		isAdmin:    isAdmin,
		logger:     logger,
	}
}

var adminCommands = map[string]bool{
	"add":         true,
	"stats":       true,
	"subscribers": true,
	"broadcast":   true,
}

func (s *CommandService) Handle(ctx context.Context, msg *domain.InboundMessage) *Outcome {
	lc := domain.NewLifecycle()
	out := &Outcome{MessageID: msg.ID}

	name, args, _ := msg.Command()

	var err error
	if adminCommands[name] && !s.isAdmin(msg.SenderID) {
		err = s.send(ctx, msg.ChatID, replyPermission)
	} else {
		err = s.dispatch(ctx, msg, name, args)
	}

	if err != nil {
		s.logger.Error("command failed",
			"command", name,
			"message_id", msg.ID,
			"error", err,
		)
		out.Err = err
		if sendErr := s.send(ctx, msg.ChatID, replyGenericApology); sendErr != nil {
			s.logger.Warn("failed to send apology", "message_id", msg.ID, "error", sendErr)
		}
	}

	_ = lc.MarkReplied()
	out.State = lc.State()
	out.History = lc.History()
	metrics.MessageProcessed(string(out.State))
	return out
}

func (s *CommandService) dispatch(ctx context.Context, msg *domain.InboundMessage, name string, args []string) error {
	switch name {
	case "start", "help":
		return s.start(ctx, msg)
	case "subscribe":
		return s.subscribe(ctx, msg)
	case "unsubscribe":
		return s.unsubscribe(ctx, msg)
	case "add":
		return s.addSubscriber(ctx, msg, args)
	case "stats":
		return s.stats(ctx, msg)
	case "subscribers":
		return s.listSubscribers(ctx, msg)
	case "broadcast":
		return s.broadcast(ctx, msg)
	case "record":
		return s.record(ctx, msg, args)
	case "lang":
		return s.lang(ctx, msg, args)
	default:
		return s.send(ctx, msg.ChatID, replyUnknownCommand)
	}
}

func (s *CommandService) start(ctx context.Context, msg *domain.InboundMessage) error {
	if s.isAdmin(msg.SenderID) {
		return s.send(ctx, msg.ChatID, replyAdminPanel)
	}
	return s.send(ctx, msg.ChatID, replyWelcome)
}

func (s *CommandService) subscribe(ctx context.Context, msg *domain.InboundMessage) error {
	added, err := s.audience.Subscribe(ctx, msg.SenderID)
	if err != nil {
		return err
	}
	if !added {
		return s.send(ctx, msg.ChatID, replyAlreadySub)
	}
	return s.send(ctx, msg.ChatID, replySubscribed)
}

func (s *CommandService) unsubscribe(ctx context.Context, msg *domain.InboundMessage) error {
	removed, err := s.audience.Unsubscribe(ctx, msg.SenderID)
	if err != nil {
		return err
	}
	if !removed {
		return s.send(ctx, msg.ChatID, replyNotSubscribed)
	}
	return s.send(ctx, msg.ChatID, replyUnsubscribed)
}

func (s *CommandService) addSubscriber(ctx context.Context, msg *domain.InboundMessage, args []string) error {
	if len(args) == 0 {
		return s.send(ctx, msg.ChatID, replyAddUsage)
	}
	userID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return s.send(ctx, msg.ChatID, replyAddInvalid)
	}

	if err := s.audience.AddUser(ctx, userID); err != nil {
		return err
	}
	if _, err := s.audience.Subscribe(ctx, userID); err != nil {
		return err
	}
	return s.send(ctx, msg.ChatID, replyAdded(userID))
}

func (s *CommandService) stats(ctx context.Context, msg *domain.InboundMessage) error {
	audience, err := s.audience.Snapshot(ctx)
	if err != nil {
		return err
	}
	return s.send(ctx, msg.ChatID, replyStats(audience.Stats()))
}

func (s *CommandService) listSubscribers(ctx context.Context, msg *domain.InboundMessage) error {
	audience, err := s.audience.Snapshot(ctx)
	if err != nil {
		return err
	}
	ids := audience.Select(domain.TargetSubscribers)
	if len(ids) == 0 {
		return s.send(ctx, msg.ChatID, replyNoSubscribers)
	}
	for _, part := range replySubscriberList(ids) {
		if err := s.send(ctx, msg.ChatID, part); err != nil {
			return err
		}
	}
	return nil
}

func (s *CommandService) broadcast(ctx context.Context, msg *domain.InboundMessage) error {
	b, err := domain.ParseBroadcast(msg.Text)
	if err != nil {
		var domainErr *domain.DomainError
		if errors.As(err, &domainErr) {
			return s.send(ctx, msg.ChatID, "❌ "+domainErr.Message)
		}
		return err
	}

	recipients, err := s.broadcasts.Recipients(ctx, b.Target)
	if err != nil {
		return err
	}
	if len(recipients) == 0 {
		return s.send(ctx, msg.ChatID, replyNoAudience(b.Target))
	}

	progress := fmt.Sprintf("📡 Broadcasting to %s\n\nSending to %d users...\nThis may take a few moments.",
		b.Target.Label(), len(recipients))
	if err := s.send(ctx, msg.ChatID, progress); err != nil {
		return err
	}

	summary, err := s.broadcasts.Send(ctx, b)
	if err != nil {
		s.logger.Warn("broadcast finished with failures",
			"target", b.Target,
			"failed", summary.Failed,
			"error", err,
		)
	}
	return s.send(ctx, msg.ChatID, replyBroadcastSummary(summary))
}

func (s *CommandService) record(ctx context.Context, msg *domain.InboundMessage, args []string) error {
	if len(args) == 0 {
		return s.send(ctx, msg.ChatID, replyRecordUsage)
	}
	messageID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return s.send(ctx, msg.ChatID, replyRecordUsage)
	}

	rec, err := s.records.Get(ctx, domain.NewMessageID(msg.ChatID, messageID).Key())
	if errors.Is(err, domain.ErrRecordNotFound) {
		return s.send(ctx, msg.ChatID, replyRecordNotFound)
	}
	if err != nil {
		return err
	}
	return s.send(ctx, msg.ChatID, replyRecord(rec))
}

func (s *CommandService) lang(ctx context.Context, msg *domain.InboundMessage, args []string) error {
	if len(args) == 0 {
		return s.send(ctx, msg.ChatID, replyLangUsage)
	}
	code, ok := s.languages.Set(msg.ChatID, args[0])
	if !ok {
		return s.send(ctx, msg.ChatID, replyLangUsage)
	}
	return s.send(ctx, msg.ChatID, replyLanguageSet(code))
}

func (s *CommandService) send(ctx context.Context, chatID int64, text string) error {
	for _, chunk := range splitMessage(text) {
		if err := s.messenger.Send(ctx, application.OutgoingMessage{ChatID: chatID, Text: chunk}); err != nil {
			return fmt.Errorf("send reply: %w", err)
		}
	}
	return nil
}
