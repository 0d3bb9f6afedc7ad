package validation

import (
	"strings"
	"testing"
)

func TestMessageBody(t *testing.T) {
	if err := MessageBody("hello"); err != nil {
		t.Fatalf("valid body rejected: %v", err)
	}
	if err := MessageBody("   "); err == nil {
		t.Fatal("whitespace-only body accepted")
	}
	if err := MessageBody(strings.Repeat("a", rules.MaxBodyLength+1)); err == nil {
		t.Fatal("oversized body accepted")
	}
	if err := MessageBody("bad\xff\xfe"); err == nil {
		t.Fatal("invalid UTF-8 accepted")
	}
}

func TestConversationName(t *testing.T) {
	if err := ConversationName("team chat"); err != nil {
		t.Fatalf("valid name rejected: %v", err)
	}
	if err := ConversationName(""); err == nil {
		t.Fatal("empty name accepted")
	}
	if err := ConversationName(strings.Repeat("n", rules.MaxNameLength+1)); err == nil {
		t.Fatal("oversized name accepted")
	}
}

func TestEmoji(t *testing.T) {
	if err := Emoji("👍"); err != nil {
		t.Fatalf("valid emoji rejected: %v", err)
	}
	if err := Emoji(" "); err == nil {
		t.Fatal("blank emoji accepted")
	}
	if err := Emoji(strings.Repeat("🔥", 10)); err == nil {
		t.Fatal("oversized reaction key accepted")
	}
}

func TestSetRulesKeepsDefaultsForZero(t *testing.T) {
	orig := rules
	defer func() { rules = orig }()

	SetRules(Rules{MaxBodyLength: 10})
	if rules.MaxBodyLength != 10 {
		t.Fatalf("body limit not applied: %d", rules.MaxBodyLength)
	}
	if rules.MaxNameLength != orig.MaxNameLength || rules.MaxEmojiLength != orig.MaxEmojiLength {
		t.Fatalf("zero fields overwrote defaults: %+v", rules)
	}
	if err := MessageBody(strings.Repeat("a", 11)); err == nil {
		t.Fatal("configured limit not enforced")
	}
}
