package domain

import (
	"slices"
	"strings"
)

// QueryService answers point queries over one merged table. It holds its own
// copy of the rows and never writes to them, so it is safe for concurrent use.
type QueryService struct {
	records []MergedRecord
}

// NewQueryService captures the rows of t.
func NewQueryService(t MergedTable) *QueryService {
	return &QueryService{records: slices.Clone(t.Records)}
}

// Len returns the number of rows.
func (q *QueryService) Len() int { return len(q.records) }

// ByID returns the first record whose id equals id exactly.
func (q *QueryService) ByID(id string) (MergedRecord, bool) {
	for _, r := range q.records {
		if r.ID == id {
			return r, true
		}
	}
	return MergedRecord{}, false
}

// ByAddressSubstring returns every record whose address contains needle,
// ignoring case, in table order. Records without an address never match.
func (q *QueryService) ByAddressSubstring(needle string) []MergedRecord {
	needle = strings.ToLower(needle)
	out := make([]MergedRecord, 0)
	for _, r := range q.records {
		if r.Address == nil {
			continue
		}
		if strings.Contains(strings.ToLower(*r.Address), needle) {
			out = append(out, r)
		}
	}
	return out
}

// LastUpdate returns the feed update time of the record with the given id.
// found is false when no record matches; a matched record that had no live
// data returns a nil time.
func (q *QueryService) LastUpdate(id string) (updated *string, found bool) {
	r, ok := q.ByID(id)
	if !ok {
		return nil, false
	}
	return r.UpdateTime, true
}
