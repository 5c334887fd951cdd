package bot

import (
	"strings"
	"testing"

	"crypto-news-bot/news"
)

func TestFormat(t *testing.T) {
	item := news.Item{
		ID:         "1",
		Title:      "Bitcoin breaks resistance",
		URL:        "https://example.com/btc",
		Currencies: []string{"BTC", "ETH"},
		Vote:       "bullish",
	}

	got := Format(item)
	want := "🟢 Bullish BTC, ETH\nBitcoin breaks resistance\nhttps://example.com/btc"
	if got != want {
		t.Errorf("Format() =\n%s\nwant\n%s", got, want)
	}
}

func TestFormatSentimentTags(t *testing.T) {
	tests := []struct {
		vote string
		tag  string
	}{
		{"bullish", "🟢 Bullish"},
		{"positive", "🟢 Bullish"},
		{"bearish", "🔴 Bearish"},
		{"negative", "🔴 Bearish"},
		{"", "⚪ Neutral"},
		{"important", "⚪ Neutral"},
		{"something-else", "⚪ Neutral"},
	}

	for _, tt := range tests {
		msg := Format(news.Item{Title: "t", Vote: tt.vote})
		if !strings.HasPrefix(msg, tt.tag) {
			t.Errorf("vote %q: message should start with %q, got: %s", tt.vote, tt.tag, msg)
		}
		for _, other := range sentimentTags {
			if other != tt.tag && strings.Contains(msg, other) {
				t.Errorf("vote %q: message should not contain %q", tt.vote, other)
			}
		}
	}
}

func TestFormatMissingTitle(t *testing.T) {
	for _, title := range []string{"", "   "} {
		msg := Format(news.Item{Title: title, URL: "https://example.com"})
		lines := strings.Split(msg, "\n")
		if len(lines) != 3 {
			t.Fatalf("expected 3 lines, got %d: %q", len(lines), msg)
		}
		if lines[1] != "(untitled)" {
			t.Errorf("title line = %q, want placeholder", lines[1])
		}
	}
}

func TestFormatMissingURL(t *testing.T) {
	msg := Format(news.Item{Title: "No link here", Currencies: []string{"SOL"}})
	if strings.HasSuffix(msg, "\n") {
		t.Errorf("message should not end with a blank url line: %q", msg)
	}
	if lines := strings.Split(msg, "\n"); len(lines) != 2 {
		t.Errorf("expected 2 lines, got %d: %q", len(lines), msg)
	}
}

func TestFormatNoCurrencies(t *testing.T) {
	for _, codes := range [][]string{nil, {}, {"", " "}} {
		msg := Format(news.Item{Title: "Market wide news", Currencies: codes})
		firstLine := strings.SplitN(msg, "\n", 2)[0]
		if firstLine != "⚪ Neutral multiple currencies" {
			t.Errorf("currencies %v: first line = %q", codes, firstLine)
		}
	}
}

func TestFormatDoesNotEscape(t *testing.T) {
	msg := Format(news.Item{Title: "<b>A & B</b>"})
	if !strings.Contains(msg, "<b>A & B</b>") {
		t.Errorf("title should be kept verbatim, got: %s", msg)
	}
}
