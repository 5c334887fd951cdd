package cryptopanic

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"crypto-news-bot/news"
)

type postsResponse struct {
	Results []post          `json:"results"`
	Error   json.RawMessage `json:"error"`
}

func (r *postsResponse) hasError() bool {
	e := bytes.TrimSpace(r.Error)
	return len(e) > 0 && !bytes.Equal(e, []byte("null"))
}

type post struct {
	ID          postID     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	PublishedAt string     `json:"published_at"`
	Source      *source    `json:"source"`
	Currencies  []currency `json:"currencies"`
	Votes       *votes     `json:"votes"`
	Vote        string     `json:"vote"`
	Sentiment   string     `json:"sentiment"`
}

type source struct {
	Title  string `json:"title"`
	Domain string `json:"domain"`
	URL    string `json:"url"`
}

type currency struct {
	Code  string `json:"code"`
	Title string `json:"title"`
	Slug  string `json:"slug"`
}

type votes struct {
	Negative  int `json:"negative"`
	Positive  int `json:"positive"`
	Important int `json:"important"`
	Liked     int `json:"liked"`
	Disliked  int `json:"disliked"`
	Lol       int `json:"lol"`
	Toxic     int `json:"toxic"`
	Saved     int `json:"saved"`
	Comments  int `json:"comments"`
}

// postID accepts numeric and string ids. Zero, empty and null mean "no id".
type postID string

func (id *postID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = postID(strings.TrimSpace(s))
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	if f, err := strconv.ParseFloat(n.String(), 64); err == nil && f == 0 {
		*id = ""
		return nil
	}
	*id = postID(n.String())
	return nil
}

func (p post) toItem() news.Item {
	item := news.Item{
		ID:    string(p.ID),
		Title: strings.TrimSpace(p.Title),
		URL:   strings.TrimSpace(p.URL),
		Vote:  p.vote(),
	}

	if item.URL == "" && p.Source != nil {
		item.URL = strings.TrimSpace(p.Source.URL)
	}

	for _, c := range p.Currencies {
		if c.Code != "" {
			item.Currencies = append(item.Currencies, c.Code)
		}
	}

	if p.PublishedAt != "" {
		if t, err := time.Parse(time.RFC3339, p.PublishedAt); err == nil {
			item.PublishedAt = t
		}
	}

	return item
}

// vote prefers an explicit sentiment string and falls back to comparing vote counts.
func (p post) vote() string {
	if p.Vote != "" {
		return p.Vote
	}
	if p.Sentiment != "" {
		return p.Sentiment
	}
	if p.Votes == nil {
		return ""
	}
	switch {
	case p.Votes.Positive > p.Votes.Negative:
		return "positive"
	case p.Votes.Negative > p.Votes.Positive:
		return "negative"
	default:
		return ""
	}
}
