// topstories/services/frontend/models/story.go
package models

import (
	"bytes"
	"encoding/json"
)

// Story represents a single top story ready to be rendered.
type Story struct {
	URI   string `json:"uri"` // Stable identifier, used as the list key
	URL   string `json:"url"`
	Title string `json:"title"`
}

// RawStory is one record of the upstream "results" array.
// URI, URL and Title stay raw so a wrongly typed field degrades that record
// instead of failing the whole envelope.
type RawStory struct {
	URI           json.RawMessage `json:"uri"`
	URL           json.RawMessage `json:"url"`
	Title         json.RawMessage `json:"title"`
	Section       string          `json:"section,omitempty"`
	Abstract      string          `json:"abstract,omitempty"`
	Byline        string          `json:"byline,omitempty"`
	PublishedDate string          `json:"published_date,omitempty"`
}

// TitleText returns the title as text, or "" when the field is absent,
// null, false, zero, or not a scalar.
func (r RawStory) TitleText() string { return scalarText(r.Title) }

// Story converts the raw record into a Story.
func (r RawStory) Story() Story {
	return Story{URI: scalarText(r.URI), URL: scalarText(r.URL), Title: r.TitleText()}
}

// scalarText renders a JSON scalar: strings decoded, numbers as written,
// true as "true". Zero, false, null, objects and arrays are "".
func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 't':
		if bytes.Equal(raw, []byte("true")) {
			return "true"
		}
		return ""
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		if f, err := n.Float64(); err == nil && f == 0 {
			return ""
		}
		return n.String()
	}
	return ""
}

// Envelope is the top-level object returned by the Top Stories API.
type Envelope struct {
	Status     string      `json:"status,omitempty"`
	Section    string      `json:"section,omitempty"`
	NumResults int         `json:"num_results,omitempty"`
	Results    *[]RawStory `json:"results"` // nil when the field is missing
}

// FilterTitled keeps the records that carry a non-empty title, in order.
func FilterTitled(records []RawStory) []Story {
	stories := make([]Story, 0, len(records))
	for _, r := range records {
		if r.TitleText() == "" {
			continue
		}
		stories = append(stories, r.Story())
	}
	return stories
}
