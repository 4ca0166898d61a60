package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Feed is the decoded availability payload. Items and entries are kept raw:
// only items[0] is ever decoded, and one malformed entry can be dropped
// without failing the whole pull.
type Feed struct {
	Items []json.RawMessage `json:"items"`
}

// FeedItem is the layout of the payload's first items element.
type FeedItem struct {
	Timestamp   json.RawMessage   `json:"timestamp"`
	CarparkData []json.RawMessage `json:"carpark_data"`
}

type feedEntry struct {
	CarparkNumber  json.RawMessage   `json:"carpark_number"`
	UpdateDatetime json.RawMessage   `json:"update_datetime"`
	CarparkInfo    []json.RawMessage `json:"carpark_info"`
}

type feedInfo struct {
	TotalLots     json.RawMessage `json:"total_lots"`
	LotType       json.RawMessage `json:"lot_type"`
	LotsAvailable json.RawMessage `json:"lots_available"`
}

// DecodeFeed decodes a response body. Malformed JSON is ErrDecode; well-formed
// JSON that does not fit the payload layout at the top level is ErrShape.
func DecodeFeed(body []byte) (Feed, error) {
	if !json.Valid(body) {
		return Feed{}, fmt.Errorf("%w: %d byte body", ErrDecode, len(body))
	}
	var feed Feed
	if err := json.Unmarshal(body, &feed); err != nil {
		return Feed{}, fmt.Errorf("%w: %v", ErrShape, err)
	}
	return feed, nil
}

// ParseFeed is DecodeFeed followed by NormalizeFeed.
func ParseFeed(body []byte) (LiveTable, error) {
	feed, err := DecodeFeed(body)
	if err != nil {
		return LiveTable{}, err
	}
	return NormalizeFeed(feed)
}

// NormalizeFeed flattens items[0] into one LiveRecord per facility. Entries
// without an id, an update time or an info block are skipped, as are entries
// whose lot counts are not non-negative integers. Skips are counted in
// LiveTable.Dropped. The pull fails with ErrShape only when items is empty or
// nothing survives.
func NormalizeFeed(feed Feed) (LiveTable, error) {
	if len(feed.Items) == 0 {
		return LiveTable{}, fmt.Errorf("%w: feed has no items", ErrShape)
	}
	var item FeedItem
	if err := json.Unmarshal(feed.Items[0], &item); err != nil {
		return LiveTable{}, fmt.Errorf("%w: items[0]: %v", ErrShape, err)
	}

	var feedTS *string
	if ts := looseString(item.Timestamp); ts != "" {
		feedTS = &ts
	}

	records := make([]LiveRecord, 0, len(item.CarparkData))
	dropped := 0
	for _, raw := range item.CarparkData {
		rec, ok := normalizeEntry(raw, feedTS)
		if !ok {
			dropped++
			continue
		}
		records = append(records, rec)
	}

	if len(records) == 0 {
		return LiveTable{}, fmt.Errorf("%w: no valid car park entries (%d dropped)", ErrShape, dropped)
	}

	return LiveTable{
		Columns:       slices.Clone(LiveColumns),
		Records:       records,
		FeedTimestamp: feedTS,
		Dropped:       dropped,
	}, nil
}

func normalizeEntry(raw json.RawMessage, feedTS *string) (LiveRecord, bool) {
	var entry feedEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return LiveRecord{}, false
	}

	id := looseString(entry.CarparkNumber)
	updated := looseString(entry.UpdateDatetime)
	if id == "" || updated == "" || len(entry.CarparkInfo) == 0 {
		return LiveRecord{}, false
	}

	var info feedInfo
	if err := json.Unmarshal(entry.CarparkInfo[0], &info); err != nil {
		return LiveRecord{}, false
	}
	total, ok := coerceCount(info.TotalLots)
	if !ok {
		return LiveRecord{}, false
	}
	available, ok := coerceCount(info.LotsAvailable)
	if !ok {
		return LiveRecord{}, false
	}

	rec := LiveRecord{
		ID:            id,
		UpdateTime:    updated,
		TotalLots:     total,
		LotsAvailable: available,
		FeedTimestamp: feedTS,
	}
	if lt := looseString(info.LotType); lt != "" {
		rec.LotType = &lt
	}
	return rec, true
}

// looseString reads a JSON scalar as text. Strings are returned verbatim and
// numbers in their literal form; zero, null and non-scalars read as "".
func looseString(raw json.RawMessage) string {
	v, ok := decodeScalar(raw)
	if !ok {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		if f, err := x.Float64(); err == nil && f == 0 {
			return ""
		}
		return x.String()
	default:
		return ""
	}
}

// coerceCount accepts integer strings ("410", " 410 ") and integral JSON
// numbers. Fractions and negatives are rejected.
func coerceCount(raw json.RawMessage) (int, bool) {
	v, ok := decodeScalar(raw)
	if !ok {
		return 0, false
	}

	var n int
	switch x := v.(type) {
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, false
		}
		n = i
	case json.Number:
		if i, err := x.Int64(); err == nil {
			n = int(i)
			break
		}
		f, err := x.Float64()
		if err != nil || f != float64(int64(f)) {
			return 0, false
		}
		n = int(f)
	default:
		return 0, false
	}

	if n < 0 {
		return 0, false
	}
	return n, true
}

func decodeScalar(raw json.RawMessage) (any, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, false
	}
	return v, v != nil
}
