package services

import (
	"regexp"
	"strings"
	"sync"
)

// Tesseract language codes: "eng", "chi_sim", "deu+eng".
var languageCode = regexp.MustCompile(`^[a-z]{3}(_[a-z]+)?(\+[a-z]{3}(_[a-z]+)?)*$`)

// LanguagePrefs keeps the OCR language chosen per chat. It lives in memory only.
type LanguagePrefs struct {
	mu     sync.RWMutex
	byChat map[int64]string
}

func NewLanguagePrefs() *LanguagePrefs {
	return &LanguagePrefs{byChat: make(map[int64]string)}
}

func (p *LanguagePrefs) Get(chatID int64) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.byChat[chatID]
}

// NormalizeLanguage lower-cases code and reports whether it looks like a
// Tesseract language code.
func NormalizeLanguage(code string) (string, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if !languageCode.MatchString(code) {
		return "", false
	}
	return code, true
}

// Set validates and stores the language for a chat, returning the normalised code.
func (p *LanguagePrefs) Set(chatID int64, code string) (string, bool) {
	code, ok := NormalizeLanguage(code)
	if !ok {
		return "", false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byChat[chatID] = code
	return code, true
}
