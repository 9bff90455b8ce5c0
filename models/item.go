// Package models defines the catalog records enriched by the pipeline.
package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ScrapeStatus tracks where an item is in the enrichment lifecycle.
type ScrapeStatus string

// Scrape statuses persisted in the catalog file.
const (
	StatusPending   ScrapeStatus = "pending"
	StatusCompleted ScrapeStatus = "completed"
	StatusError     ScrapeStatus = "error"
)

// Item is one catalog entry. Index is its position in the catalog and is
// never serialised. Fields the pipeline does not know about are kept in
// extra and written back untouched.
type Item struct {
	Index        int          `json:"-"`
	Name         string       `json:"name"`
	URL          string       `json:"url"`
	Category     string       `json:"category,omitempty"`
	ImageURL     string       `json:"imageUrl,omitempty"`
	CurrentPrice string       `json:"currentPrice,omitempty"`
	ScrapeStatus ScrapeStatus `json:"scrapeStatus,omitempty"`
	ScrapeError  string       `json:"scrapeError,omitempty"`
	ScrapedAt    *Timestamp   `json:"scrapedAt,omitempty"`

	extra map[string]json.RawMessage
}

var itemKeys = map[string]struct{}{
	"name":         {},
	"url":          {},
	"category":     {},
	"imageUrl":     {},
	"currentPrice": {},
	"scrapeStatus": {},
	"scrapeError":  {},
	"scrapedAt":    {},
}

// itemFields avoids recursion into Item's own (Un)MarshalJSON.
type itemFields Item

// UnmarshalJSON decodes the known fields and stashes the rest.
func (it *Item) UnmarshalJSON(data []byte) error {
	var fields itemFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	index := it.Index
	*it = Item(fields)
	it.Index = index
	if it.ScrapeStatus == "" {
		it.ScrapeStatus = StatusPending
	}
	for key, value := range raw {
		if _, known := itemKeys[key]; known {
			continue
		}
		if it.extra == nil {
			it.extra = make(map[string]json.RawMessage)
		}
		it.extra[key] = value
	}
	return nil
}

// MarshalJSON writes the known fields followed by the passthrough ones.
func (it Item) MarshalJSON() ([]byte, error) {
	known, err := json.Marshal(itemFields(it))
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, it.extra)
}

// Extra returns a passthrough field as raw JSON.
func (it *Item) Extra(key string) (json.RawMessage, bool) {
	value, ok := it.extra[key]
	return value, ok
}

// HasImage reports whether an image URL is already recorded.
func (it *Item) HasImage() bool {
	return strings.TrimSpace(it.ImageURL) != ""
}

// Enriched reports whether the item is completed with an image and can be
// skipped on later runs.
func (it *Item) Enriched() bool {
	return it.ScrapeStatus == StatusCompleted && it.HasImage()
}

// MarkCompleted records a successful attempt. Empty values leave the
// previous field untouched.
func (it *Item) MarkCompleted(imageURL, price string, at time.Time) {
	if imageURL != "" {
		it.ImageURL = imageURL
	}
	if price != "" {
		it.CurrentPrice = price
	}
	it.ScrapeStatus = StatusCompleted
	it.ScrapeError = ""
	it.ScrapedAt = NewTimestamp(at)
}

// MarkError records a failed attempt without touching the output fields.
func (it *Item) MarkError(reason string, at time.Time) {
	if strings.TrimSpace(reason) == "" {
		reason = "unknown error"
	}
	it.ScrapeStatus = StatusError
	it.ScrapeError = reason
	it.ScrapedAt = NewTimestamp(at)
}

// Validate checks the status invariants of an item.
func (it *Item) Validate() error {
	switch it.ScrapeStatus {
	case StatusPending, "":
		return nil
	case StatusCompleted:
		if !it.HasImage() && strings.TrimSpace(it.CurrentPrice) == "" {
			return fmt.Errorf("item %d completed without image or price", it.Index)
		}
		return nil
	case StatusError:
		if strings.TrimSpace(it.ScrapeError) == "" {
			return fmt.Errorf("item %d in error without a reason", it.Index)
		}
		return nil
	default:
		return fmt.Errorf("item %d has unknown status %q", it.Index, it.ScrapeStatus)
	}
}

func mergeExtra(known []byte, extra map[string]json.RawMessage) ([]byte, error) {
	if len(extra) == 0 {
		return known, nil
	}
	tail, err := json.Marshal(extra)
	if err != nil {
		return nil, err
	}

	known = bytes.TrimSuffix(bytes.TrimSpace(known), []byte("}"))
	tail = bytes.TrimPrefix(bytes.TrimSpace(tail), []byte("{"))

	var buf bytes.Buffer
	buf.Grow(len(known) + len(tail) + 1)
	buf.Write(known)
	if len(known) > 1 {
		buf.WriteByte(',')
	}
	buf.Write(tail)
	return buf.Bytes(), nil
}
