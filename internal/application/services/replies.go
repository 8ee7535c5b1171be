package services

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/DanielPopoola/ocrbot/internal/domain"
)

const (
	// messageLimit is the longest text a single chat message may carry.
	messageLimit = 4000
	// chunkSize is used when a reply has to be split.
	chunkSize = 3500
)

const (
	replyWelcome = "👋 Welcome! Send me a photo or an image file and I'll reply with the text I can read in it.\n\n" +
		"/subscribe - receive announcements\n" +
		"/unsubscribe - stop receiving announcements\n" +
		"/lang <code> - set the OCR language (e.g. eng, deu, fra)\n" +
		"/record <message id> - show a stored result"

	replyAdminPanel = "🔧 Admin Panel\n\n" +
		"/stats - audience totals\n" +
		"/subscribers - list subscribers\n" +
		"/add <user id> - add a subscriber\n" +
		"/broadcast <all|subscribers|nonsubscribers> - send a message; end it with \"Text|URL\" lines to attach buttons\n" +
		"/lang <code> - set the OCR language\n" +
		"/record <message id> - show a stored result"

	replySendImage      = "📷 Send me an image and I'll extract its text. Use /help to see the commands."
	replyNoText         = "🔍 I couldn't find any text in that image."
	replySubscribed     = "🔔 Successfully subscribed to broadcasts!"
	replyAlreadySub     = "✅ You're already subscribed to broadcasts!"
	replyUnsubscribed   = "🔕 Successfully unsubscribed from broadcasts!"
	replyNotSubscribed  = "❌ You're not currently subscribed."
	replyPermission     = "❌ You don't have permission to use this command."
	replyUnknownCommand = "🤔 Unknown command. Use /help to see what I can do."
	replyGenericApology = "❌ Sorry, an error occurred while processing your request. Please try again."
	replyNoSubscribers  = "📝 No subscribers yet."
	replyAddUsage       = "❌ Please provide a user ID: /add <user_id>"
	replyAddInvalid     = "❌ Invalid user ID. Please provide a numeric ID."
	replyRecordUsage    = "Usage: /record <message id>"
	replyRecordNotFound = "🔍 No stored result for that message."
	replyLangUsage      = "Usage: /lang <code>, for example /lang eng or /lang deu+eng"
)

func replyExtracted(text string) string {
	return "📝 Extracted text:\n\n" + text
}

func replyFailure(kind domain.FailureKind) string {
	switch kind {
	case domain.FailureMalformedInput:
		return fmt.Sprintf("⚠️ I couldn't read that file as an image (%s). Please send a PNG, JPEG, TIFF, BMP or WebP image.", kind)
	case domain.FailureOcrTimeout:
		return fmt.Sprintf("⏱️ Text recognition took too long and was stopped (%s). Try a smaller or clearer image.", kind)
	case domain.FailureStorageUnavailable:
		return fmt.Sprintf("💾 I read the image but couldn't save the result (%s). Please try again later.", kind)
	default:
		return fmt.Sprintf("🛠️ Text recognition is unavailable right now (%s). Please try again later.", kind)
	}
}

func replyAdded(userID int64) string {
	return fmt.Sprintf("✅ User %d added to subscribers list!", userID)
}

func replyStats(s domain.AudienceStats) string {
	return fmt.Sprintf("📊 Bot Statistics\n\n👥 Total Users: %d\n🔔 Subscribers: %d\n🔕 Non-subscribers: %d",
		s.Users, s.Subscribers, s.NonSubscribers)
}

func replyNoAudience(target domain.Target) string {
	return fmt.Sprintf("❌ No %s found to send the broadcast to.", strings.ToLower(target.Label()))
}

// replySubscriberList renders the sorted subscriber ids. A list that does not fit
// one message is sent as a header followed by chunks of the bare list.
func replySubscriberList(ids []int64) []string {
	lines := make([]string, len(ids))
	for i, id := range ids {
		lines[i] = fmt.Sprintf("• %d", id)
	}
	list := strings.Join(lines, "\n")
	header := fmt.Sprintf("📝 Subscribers List (%d total):", len(ids))

	message := header + "\n\n" + list
	if utf8.RuneCountInString(message) <= messageLimit {
		return []string{message}
	}
	return append([]string{header}, splitMessage(list)...)
}

func replyLanguageSet(lang string) string {
	return fmt.Sprintf("🌐 OCR language set to %s.", lang)
}

func replyRecord(r *domain.PersistedRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🗂️ Record %s\nStored: %s\n", r.Key, r.StoredAt.Format("2006-01-02 15:04:05 MST"))
	if r.Success {
		if r.Text == "" {
			b.WriteString("Result: no text found")
		} else {
			b.WriteString("Text:\n\n" + r.Text)
		}
	} else {
		fmt.Fprintf(&b, "Failed: %s\n%s", r.Failure, r.Diagnostic)
	}
	return b.String()
}

func replyBroadcastSummary(s BroadcastSummary) string {
	return fmt.Sprintf("✅ Broadcast Complete!\n\n📊 Results:\n• Target: %s\n• Successfully sent: %d\n• Failed: %d\n• Total attempted: %d",
		s.Target.Label(), s.Sent, s.Failed, s.Total)
}

// splitMessage breaks text that exceeds messageLimit into chunks of at most
// chunkSize runes, preferring to cut at line breaks.
func splitMessage(text string) []string {
	if utf8.RuneCountInString(text) <= messageLimit {
		return []string{text}
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		n := utf8.RuneCountInString(line)
		if curLen+n > chunkSize {
			flush()
		}
		for n > chunkSize {
			runes := []rune(line)
			chunks = append(chunks, string(runes[:chunkSize]))
			line = string(runes[chunkSize:])
			n -= chunkSize
		}
		cur.WriteString(line)
		curLen += n
	}
	flush()
	return chunks
}
