package telegram

import (
	"context"
	"strings"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

// Inbound converts an update into an InboundMessage, downloading the attached
// image if there is one. Updates without a message return nil. An image that
// cannot be fetched is attached with empty data so the pipeline answers it as
// malformed input.
func (c *Client) Inbound(ctx context.Context, u Update) (*domain.InboundMessage, error) {
	m := u.Message
	if m == nil {
		return nil, nil
	}

	text := m.Text
	if text == "" {
		text = m.Caption
	}

	var senderID int64
	var senderName string
	if m.From != nil {
		senderID = m.From.ID
		senderName = m.From.Username
		if senderName == "" {
			senderName = m.From.FirstName
		}
	}

	msg, err := domain.NewInboundMessage(domain.NewMessageID(m.Chat.ID, m.MessageID), m.Chat.ID, senderID, text, nil)
	if err != nil {
		return nil, err
	}
	msg.SenderName = senderName
	if m.Date > 0 {
		msg.ReceivedAt = time.Unix(m.Date, 0).UTC()
	}

	fileID, contentType, size, ok := pickImage(m)
	if !ok {
		return msg, nil
	}

	msg.Image = &domain.ImagePayload{FileID: fileID, ContentType: contentType}
	if size > c.maxImageBytes {
		c.logger.Warn("image too large, not downloading",
			"message_id", msg.ID,
			"size", size,
			"limit", c.maxImageBytes,
		)
		return msg, nil
	}

	data, err := c.fetch(ctx, fileID)
	if err != nil {
		c.logger.Warn("failed to fetch image", "message_id", msg.ID, "error", err)
		return msg, nil
	}
	msg.Image.Data = data
	return msg, nil
}

func (c *Client) fetch(ctx context.Context, fileID string) ([]byte, error) {
	f, err := c.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return c.DownloadFile(ctx, f.FilePath, c.maxImageBytes)
}

// pickImage returns the largest photo size, or an image document.
func pickImage(m *Message) (fileID, contentType string, size int64, ok bool) {
	if len(m.Photo) > 0 {
		best := m.Photo[0]
		for _, p := range m.Photo[1:] {
			if p.Width*p.Height > best.Width*best.Height {
				best = p
			}
		}
		return best.FileID, "image/jpeg", best.FileSize, true
	}
	if d := m.Document; d != nil && strings.HasPrefix(d.MimeType, "image/") {
		return d.FileID, d.MimeType, d.FileSize, true
	}
	return "", "", 0, false
}
