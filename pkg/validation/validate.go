package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// Rules caps user-supplied field sizes. Limits are bytes of UTF-8.
type Rules struct {
	MaxBodyLength  int
	MaxNameLength  int
	MaxEmojiLength int
}

var rules = Rules{
	MaxBodyLength:  8192,
	MaxNameLength:  128,
	MaxEmojiLength: 32,
}

// SetRules installs limits from config; zero fields keep the defaults.
func SetRules(r Rules) {
	if r.MaxBodyLength > 0 {
		rules.MaxBodyLength = r.MaxBodyLength
	}
	if r.MaxNameLength > 0 {
		rules.MaxNameLength = r.MaxNameLength
	}
	if r.MaxEmojiLength > 0 {
		rules.MaxEmojiLength = r.MaxEmojiLength
	}
}

// MessageBody rejects empty (after trimming), oversized or non-UTF-8 bodies.
func MessageBody(body string) error {
	if strings.TrimSpace(body) == "" {
		return fmt.Errorf("body is required")
	}
	if len(body) > rules.MaxBodyLength {
		return fmt.Errorf("body exceeds %d bytes", rules.MaxBodyLength)
	}
	if !utf8.ValidString(body) {
		return fmt.Errorf("body is not valid UTF-8")
	}
	return nil
}

// ConversationName rejects empty or oversized names.
func ConversationName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("name is required")
	}
	if len(name) > rules.MaxNameLength {
		return fmt.Errorf("name exceeds %d bytes", rules.MaxNameLength)
	}
	return nil
}

// Emoji rejects empty or oversized reaction keys.
func Emoji(emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return fmt.Errorf("emoji is required")
	}
	if len(emoji) > rules.MaxEmojiLength {
		return fmt.Errorf("emoji exceeds %d bytes", rules.MaxEmojiLength)
	}
	return nil
}
