package news

import (
	"strings"
	"time"
)

// Item is one headline returned by the news source.
type Item struct {
	ID          string
	Title       string
	URL         string
	Currencies  []string
	Vote        string
	PublishedAt time.Time
}

// HasID reports whether the item carries a usable identifier.
func (i Item) HasID() bool {
	return i.ID != ""
}

// Sentiment is the three-way classification of an item's vote.
type Sentiment int

const (
	Neutral Sentiment = iota
	Bullish
	Bearish
)

func (s Sentiment) String() string {
	switch s {
	case Bullish:
		return "bullish"
	case Bearish:
		return "bearish"
	default:
		return "neutral"
	}
}

// Classify maps a raw vote value to a Sentiment. Unknown and empty values are neutral.
func Classify(vote string) Sentiment {
	switch strings.ToLower(strings.TrimSpace(vote)) {
	case "bullish", "positive":
		return Bullish
	case "bearish", "negative":
		return Bearish
	default:
		return Neutral
	}
}

// FetchResult is the outcome of one read from the news source.
// Items is never nil, so callers can range over it whether or not Err is set.
type FetchResult struct {
	Items []Item
	Err   error
}

// OK reports whether the fetch succeeded.
func (r FetchResult) OK() bool {
	return r.Err == nil
}

// Failed builds a FetchResult carrying err and an empty batch.
func Failed(err error) FetchResult {
	return FetchResult{Items: []Item{}, Err: err}
}
