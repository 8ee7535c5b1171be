package domain

import (
	"net/url"
	"strings"
)

// Button is an inline URL button attached to an outgoing message
type Button struct {
	Text string
	URL  string
}

type Broadcast struct {
	Target  Target
	Text    string
	Buttons []Button
}

// ParseBroadcast reads the body of a /broadcast command:
//
//	/broadcast subscribers
//	Market opens in 10 minutes.
//	Visit Website|https://example.com
//
// The first argument is the target. Trailing "Text|URL" lines become buttons,
// everything else is the message text.
func ParseBroadcast(raw string) (*Broadcast, error) {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	head := strings.Fields(lines[0])
	if len(head) < 2 {
		return nil, NewInvalidBroadcastError("usage: /broadcast <all|subscribers|nonsubscribers> followed by the message")
	}

	target, err := ParseTarget(strings.ToLower(head[1]))
	if err != nil {
		return nil, err
	}

	body := lines[1:]
	if rest := strings.Join(head[2:], " "); rest != "" {
		body = append([]string{rest}, body...)
	}

	var buttons []Button
	end := len(body)
	for end > 0 {
		line := strings.TrimSpace(body[end-1])
		if line == "" {
			end--
			continue
		}
		btn, ok := parseButton(line)
		if !ok {
			break
		}
		buttons = append([]Button{btn}, buttons...)
		end--
	}

	text := strings.TrimSpace(strings.Join(body[:end], "\n"))
	if text == "" {
		return nil, NewInvalidBroadcastError("message text is empty")
	}

	return &Broadcast{Target: target, Text: text, Buttons: buttons}, nil
}

func parseButton(line string) (Button, bool) {
	text, link, found := strings.Cut(line, "|")
	if !found {
		return Button{}, false
	}
	text, link = strings.TrimSpace(text), strings.TrimSpace(link)
	if text == "" || link == "" {
		return Button{}, false
	}
	u, err := url.Parse(link)
	if err != nil || u.Host == "" {
		return Button{}, false
	}
	switch u.Scheme {
	case "http", "https", "tg":
	default:
		return Button{}, false
	}
	return Button{Text: text, URL: link}, true
}
