package broadcast

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestCaptionFor(t *testing.T) {
	primary := map[string]bool{"ru": true}
	c := Caption{Primary: "Привет", Fallback: "Hello"}
	cases := map[string]string{"ru": "Привет", "ru_RU": "Привет", "RU-ru": "Привет", "en": "Hello", "": "Hello"}
	for locale, want := range cases {
		if got := c.For(locale, primary); got != want {
			t.Fatalf("For(%q) = %q, want %q", locale, got, want)
		}
	}
	if got := (Caption{Primary: "only"}).For("en", primary); got != "only" {
		t.Fatalf("empty fallback not covered: %q", got)
	}
	if got := (Caption{Fallback: "only"}).For("ru", primary); got != "only" {
		t.Fatalf("empty primary not covered: %q", got)
	}
}

func TestContentValidate(t *testing.T) {
	ok := []Content{
		{Kind: KindPhoto, Media: "AgAD"},
		{Kind: KindPhoto},
		{Kind: KindVideo, Media: "https://example.com/v.mp4"},
		{Kind: KindPost, Link: "https://example.com", Caption: Caption{Fallback: "x"}},
	}
	for _, c := range ok {
		if err := c.Validate(); err != nil {
			t.Fatalf("Validate(%+v) = %v", c, err)
		}
	}
	bad := []Content{
		{Kind: KindPhoto, Media: "AgAD", Link: "https://example.com"},
		{Kind: KindVideo},
		{Kind: KindPost, Link: "example.com", Caption: Caption{Fallback: "x"}},
		{Kind: KindPost, Link: "https://example.com"},
		{Kind: KindPost, Link: "https://example.com", Media: "AgAD", Caption: Caption{Fallback: "x"}},
		{Kind: "audio"},
	}
	for _, c := range bad {
		if err := c.Validate(); !errors.Is(err, ErrInvalidRequest) {
			t.Fatalf("Validate(%+v) = %v, want ErrInvalidRequest", c, err)
		}
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind(" Photo "); err != nil || k != KindPhoto {
		t.Fatalf("ParseKind = %v, %v", k, err)
	}
	if _, err := ParseKind("gif"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSummaryText(t *testing.T) {
	got := summaryText("promo_bot", RunSummary{SuccessCount: 3, FailureCount: 1, Total: 4})
	if got != "Broadcast to promo_bot finished: 3 delivered, 1 failed." {
		t.Fatalf("summary = %q", got)
	}
	got = summaryText("promo_bot", RunSummary{SuccessCount: 1, Total: 1, TestMode: true, MediaDegraded: true})
	if !strings.Contains(got, "Test run") || !strings.Contains(got, "placeholder") {
		t.Fatalf("summary = %q", got)
	}
	got = summaryText("promo_bot", RunSummary{SuccessCount: 2, Total: 2, MediaDegraded: true, MediaUnverified: true})
	if strings.Contains(got, "placeholder") || !strings.Contains(got, "original reference") {
		t.Fatalf("summary = %q", got)
	}
}

func TestConfigDefaults(t *testing.T) {
	c := Config{}.withDefaults()
	if c.PacingInterval != 100*time.Millisecond || c.Workers != 2 || c.StatusMax != 200 {
		t.Fatalf("defaults = %+v", c)
	}
	if !c.hardCodes()[403] || !c.hardCodes()[400] || c.hardCodes()[429] {
		t.Fatalf("hard codes = %v", c.hardCodes())
	}
}
