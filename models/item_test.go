package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogPreservesUnknownFields(t *testing.T) {
	input := `{
		"version": 3,
		"items": [
			{"name": "Mochi mix", "url": "https://shop.example/1", "category": "food", "issue": 12, "tags": ["a", "b"]},
			{"name": "Lamp", "url": "https://shop.example/2", "scrapeStatus": "completed", "imageUrl": "https://cdn.example/lamp.jpg"}
		]
	}`

	var catalog Catalog
	require.NoError(t, json.Unmarshal([]byte(input), &catalog))
	require.Equal(t, 2, catalog.Len())

	first := catalog.At(0)
	assert.Equal(t, 0, first.Index)
	assert.Equal(t, StatusPending, first.ScrapeStatus, "missing status loads as pending")
	issue, ok := first.Extra("issue")
	require.True(t, ok)
	assert.JSONEq(t, `12`, string(issue))
	assert.Equal(t, 1, catalog.At(1).Index)

	out, err := json.Marshal(catalog)
	require.NoError(t, err)

	var roundTrip map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTrip))
	assert.EqualValues(t, 3, roundTrip["version"])
	items := roundTrip["items"].([]any)
	firstOut := items[0].(map[string]any)
	assert.EqualValues(t, 12, firstOut["issue"])
	assert.Equal(t, []any{"a", "b"}, firstOut["tags"])
	assert.Equal(t, "food", firstOut["category"])
}

func TestItemMarkCompletedKeepsPreviousFields(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	item := &Item{ImageURL: "https://cdn.example/old.jpg", ScrapeError: "boom", ScrapeStatus: StatusError}

	item.MarkCompleted("", "$10.00", at)

	assert.Equal(t, StatusCompleted, item.ScrapeStatus)
	assert.Equal(t, "https://cdn.example/old.jpg", item.ImageURL)
	assert.Equal(t, "$10.00", item.CurrentPrice)
	assert.Empty(t, item.ScrapeError)
	require.NotNil(t, item.ScrapedAt)
	assert.True(t, item.ScrapedAt.Equal(at))
	assert.NoError(t, item.Validate())
}

func TestItemMarkErrorLeavesOutputs(t *testing.T) {
	item := &Item{CurrentPrice: "$5"}
	item.MarkError("", time.Now())

	assert.Equal(t, StatusError, item.ScrapeStatus)
	assert.Equal(t, "unknown error", item.ScrapeError)
	assert.Equal(t, "$5", item.CurrentPrice)
	assert.NoError(t, item.Validate())
}

func TestItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    Item
		wantErr bool
	}{
		{name: "pending", item: Item{ScrapeStatus: StatusPending}},
		{name: "completed with price", item: Item{ScrapeStatus: StatusCompleted, CurrentPrice: "$1"}},
		{name: "completed empty", item: Item{ScrapeStatus: StatusCompleted}, wantErr: true},
		{name: "error without reason", item: Item{ScrapeStatus: StatusError}, wantErr: true},
		{name: "unknown status", item: Item{ScrapeStatus: "scraped"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCatalogCounts(t *testing.T) {
	catalog := &Catalog{Items: []*Item{
		{ScrapeStatus: StatusCompleted},
		{ScrapeStatus: StatusError},
		{},
	}}
	catalog.Reindex()

	counts := catalog.Counts()
	assert.Equal(t, 3, catalog.Len())
	assert.Equal(t, 1, counts[StatusCompleted])
	assert.Equal(t, 1, counts[StatusError])
	assert.Equal(t, 1, counts[StatusPending])
}

func TestCatalogRejectsNullItem(t *testing.T) {
	var catalog Catalog
	err := json.Unmarshal([]byte(`{"items":[{"name":"a"},null,{"name":"c"}]}`), &catalog)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "catalog item 1 is null")
}

func TestCatalogReindexKeepsSlots(t *testing.T) {
	catalog := &Catalog{Items: []*Item{{Name: "a"}, nil, {Name: "c"}}}
	catalog.Reindex()

	assert.Equal(t, 3, catalog.Len())
	assert.Equal(t, "c", catalog.At(2).Name)
	assert.Equal(t, 2, catalog.At(2).Index)
	assert.Equal(t, 2, catalog.Counts()[StatusPending])
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  time.Time
	}{
		{"rfc3339", "2025-01-30T10:15:30Z", time.Date(2025, 1, 30, 10, 15, 30, 0, time.UTC)},
		{"offset", "2025-01-30T10:15:30.5+02:00", time.Date(2025, 1, 30, 8, 15, 30, 500000000, time.UTC)},
		{"zoneless micros", "2025-01-30T10:15:30.123456", time.Date(2025, 1, 30, 10, 15, 30, 123456000, time.Local)},
		{"zoneless seconds", "2025-01-30T10:15:30", time.Date(2025, 1, 30, 10, 15, 30, 0, time.Local)},
		{"space separated", "2025-01-30 10:15:30.1", time.Date(2025, 1, 30, 10, 15, 30, 100000000, time.Local)},
		{"empty", "", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestamp(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %v want %v", got, tt.want)
		})
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestItemZonelessScrapedAtRoundTrip(t *testing.T) {
	var item Item
	require.NoError(t, json.Unmarshal([]byte(`{"name":"a","scrapedAt":"2025-01-30T10:15:30.123456"}`), &item))
	require.NotNil(t, item.ScrapedAt)
	want := time.Date(2025, 1, 30, 10, 15, 30, 123456000, time.Local)
	assert.True(t, item.ScrapedAt.Equal(want))

	out, err := json.Marshal(item)
	require.NoError(t, err)
	var again Item
	require.NoError(t, json.Unmarshal(out, &again))
	assert.True(t, again.ScrapedAt.Equal(want))
}
