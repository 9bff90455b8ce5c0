package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Catalog is the ordered item sequence plus any other top-level fields of
// the catalog document.
type Catalog struct {
	Items []*Item `json:"items"`

	extra map[string]json.RawMessage
}

type catalogFields Catalog

// UnmarshalJSON decodes the catalog and assigns each item its index.
func (c *Catalog) UnmarshalJSON(data []byte) error {
	var fields catalogFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*c = Catalog(fields)
	for i, item := range c.Items {
		if item == nil {
			return fmt.Errorf("catalog item %d is null", i)
		}
	}
	for key, value := range raw {
		if key == "items" {
			continue
		}
		if c.extra == nil {
			c.extra = make(map[string]json.RawMessage)
		}
		c.extra[key] = value
	}
	c.Reindex()
	return nil
}

// MarshalJSON writes items followed by the passthrough top-level fields.
func (c Catalog) MarshalJSON() ([]byte, error) {
	items := c.Items
	if items == nil {
		items = []*Item{}
	}
	known, err := json.Marshal(struct {
		Items []*Item `json:"items"`
	}{Items: items})
	if err != nil {
		return nil, err
	}
	return mergeExtra(known, c.extra)
}

// Reindex assigns each item its position. Slots are never removed, so an
// index keeps pointing at the same item.
func (c *Catalog) Reindex() {
	for i, item := range c.Items {
		if item != nil {
			item.Index = i
		}
	}
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Items)
}

// At returns the item at index or nil when out of range.
func (c *Catalog) At(index int) *Item {
	if c == nil || index < 0 || index >= len(c.Items) {
		return nil
	}
	return c.Items[index]
}

// Counts tallies items by status.
func (c *Catalog) Counts() map[ScrapeStatus]int {
	counts := make(map[ScrapeStatus]int, 3)
	if c == nil {
		return counts
	}
	for _, item := range c.Items {
		if item == nil {
			continue
		}
		status := item.ScrapeStatus
		if status == "" {
			status = StatusPending
		}
		counts[status]++
	}
	return counts
}

// RunResult holds the overall result of one enrichment run.
type RunResult struct {
	StartIndex         int
	Total              int
	Processed          int
	Succeeded          int
	Failed             int
	Skipped            int
	Checkpoints        int
	CheckpointFailures int
	StartTime          time.Time
	EndTime            time.Time
}

// Duration returns how long the run took.
func (r *RunResult) Duration() time.Duration {
	if r == nil || r.EndTime.IsZero() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}
