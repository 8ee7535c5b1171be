// Package domain holds the inbound message, OCR result and persisted record types
// together with the per-message processing state machine.
package domain

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"
)

// MessageState is the processing state of a single inbound message
type MessageState string

const (
	StateReceived   MessageState = "RECEIVED"
	StateExtracting MessageState = "EXTRACTING"
	StatePersisting MessageState = "PERSISTING"
	StateReplied    MessageState = "REPLIED"
	StateFailed     MessageState = "FAILED"
)

// MessageID identifies an inbound message. Transport ids are only unique per chat,
// so the chat id is folded into it.
type MessageID string

func NewMessageID(chatID, messageID int64) MessageID {
	return MessageID(fmt.Sprintf("%d-%d", chatID, messageID))
}

// StorageKey is the persistence key derived from a MessageID.
type StorageKey string

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Key derives the storage key. Anything outside [A-Za-z0-9_-] becomes '_' so the
// key is safe as a file name and object key.
func (id MessageID) Key() StorageKey {
	return StorageKey(unsafeKeyChars.ReplaceAllString(string(id), "_"))
}

// Valid reports whether k could have been produced by MessageID.Key.
func (k StorageKey) Valid() bool {
	return k != "" && !unsafeKeyChars.MatchString(string(k))
}

// ImagePayload is the binary image attached to a message. Data may be empty when the
// transport failed to fetch it; the pipeline treats that as malformed input.
type ImagePayload struct {
	Data        []byte
	ContentType string
	FileID      string
}

type InboundMessage struct {
	ID           MessageID
	ChatID       int64
	SenderID     int64
	SenderName   string
	Text         string
	Image        *ImagePayload
	LanguageHint string
	ReceivedAt   time.Time
}

func NewInboundMessage(id MessageID, chatID, senderID int64, text string, image *ImagePayload) (*InboundMessage, error) {
	if id == "" {
		return nil, NewMissingRequiredFieldError("message id")
	}
	return &InboundMessage{
		ID:         id,
		ChatID:     chatID,
		SenderID:   senderID,
		Text:       text,
		Image:      image,
		ReceivedAt: time.Now().UTC(),
	}, nil
}

// WithLanguageHint returns a copy of m carrying lang. m itself is left as is.
func (m *InboundMessage) WithLanguageHint(lang string) *InboundMessage {
	c := *m
	c.LanguageHint = lang
	return &c
}

func (m *InboundMessage) HasImage() bool {
	return m.Image != nil
}

// Command splits a leading "/command@bot arg..." into the lower-cased command name
// and its arguments. ok is false for anything that is not a command.
func (m *InboundMessage) Command() (name string, args []string, ok bool) {
	text := strings.TrimSpace(m.Text)
	if !strings.HasPrefix(text, "/") {
		return "", nil, false
	}
	fields := strings.Fields(text)
	name = strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	if name == "" {
		return "", nil, false
	}
	return name, fields[1:], true
}

// Lifecycle tracks a message through the processing states.
type Lifecycle struct {
	state   MessageState
	history []MessageState
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		state:   StateReceived,
		history: []MessageState{StateReceived},
	}
}

func (l *Lifecycle) State() MessageState {
	return l.state
}

// History returns every state visited, in order.
func (l *Lifecycle) History() []MessageState {
	return slices.Clone(l.history)
}

func (l *Lifecycle) StartExtracting() error {
	return l.transition(StateExtracting)
}

func (l *Lifecycle) StartPersisting() error {
	return l.transition(StatePersisting)
}

func (l *Lifecycle) MarkReplied() error {
	return l.transition(StateReplied)
}

func (l *Lifecycle) Fail() error {
	return l.transition(StateFailed)
}

func (l *Lifecycle) IsTerminal() bool {
	return l.state == StateReplied || l.state == StateFailed
}

func (l *Lifecycle) transition(target MessageState) error {
	if err := l.canTransitionTo(target); err != nil {
		return err
	}
	l.state = target
	l.history = append(l.history, target)
	return nil
}

func (l *Lifecycle) canTransitionTo(target MessageState) error {
	switch l.state {
	case StateReceived:
		return l.allow(target, StateExtracting, StateReplied)
	case StateExtracting:
		return l.allow(target, StatePersisting, StateFailed)
	case StatePersisting:
		return l.allow(target, StateReplied, StateFailed)
	}
	return NewInvalidTransitionError(l.state, target)
}

func (l *Lifecycle) allow(target MessageState, allowed ...MessageState) error {
	if slices.Contains(allowed, target) {
		return nil
	}
	return NewInvalidTransitionError(l.state, target)
}
