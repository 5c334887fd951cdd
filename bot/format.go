package bot

import (
	"strings"

	"crypto-news-bot/news"
)

const (
	untitledPlaceholder   = "(untitled)"
	multiCurrencyFallback = "multiple currencies"
)

var sentimentTags = map[news.Sentiment]string{
	news.Bullish: "🟢 Bullish",
	news.Bearish: "🔴 Bearish",
	news.Neutral: "⚪ Neutral",
}

// Format renders an item as a plain-text Telegram message:
//
//	<sentiment tag> <currencies>
//	<title>
//	<url>
//
// The url line is left out when the item has no url.
func Format(item news.Item) string {
	title := strings.TrimSpace(item.Title)
	if title == "" {
		title = untitledPlaceholder
	}

	var sb strings.Builder
	sb.WriteString(sentimentTags[news.Classify(item.Vote)])
	sb.WriteString(" ")
	sb.WriteString(formatCurrencies(item.Currencies))
	sb.WriteString("\n")
	sb.WriteString(title)
	if item.URL != "" {
		sb.WriteString("\n")
		sb.WriteString(item.URL)
	}
	return sb.String()
}

func formatCurrencies(codes []string) string {
	var kept []string
	for _, c := range codes {
		if c = strings.TrimSpace(c); c != "" {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		return multiCurrencyFallback
	}
	return strings.Join(kept, ", ")
}
