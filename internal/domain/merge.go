package domain

import (
	"fmt"
	"sort"
)

// ShapeColumns are the columns any merged table must expose to be queryable.
var ShapeColumns = []string{ColumnID, ColumnAddress, ColumnTotalLots, ColumnLotsAvailable}

// Merge left-joins live records onto static records by facility id.
//
// Both tables must carry the id column (ErrKeySchema) and every static record
// must have a non-empty id (ErrKeyType). Live ids are not checked. The output
// has exactly one row per static record, in static order; when the feed
// repeats an id the first entry wins. Rows without a live match keep nil live
// fields and LotsAvailable 0.
func Merge(static StaticTable, live LiveTable) (MergedTable, error) {
	if !hasColumn(static, ColumnID) {
		return MergedTable{}, fmt.Errorf("%w: static table has no %s column", ErrKeySchema, ColumnID)
	}
	if !hasColumn(live, ColumnID) {
		return MergedTable{}, fmt.Errorf("%w: live table has no %s column", ErrKeySchema, ColumnID)
	}
	for i, rec := range static.Records {
		if rec.ID == "" {
			return MergedTable{}, fmt.Errorf("%w: static record %d has an empty %s", ErrKeyType, i+1, ColumnID)
		}
	}

	byID := make(map[string]LiveRecord, len(live.Records))
	for _, rec := range live.Records {
		if _, seen := byID[rec.ID]; !seen {
			byID[rec.ID] = rec
		}
	}

	records := make([]MergedRecord, 0, len(static.Records))
	for _, s := range static.Records {
		m := MergedRecord{StaticRecord: s}
		if l, ok := byID[s.ID]; ok {
			updated := l.UpdateTime
			total := l.TotalLots
			m.UpdateTime = &updated
			m.TotalLots = &total
			m.LotType = l.LotType
			m.LotsAvailable = l.LotsAvailable
			m.FeedTimestamp = l.FeedTimestamp
		}
		records = append(records, m)
	}

	return MergedTable{
		Columns: unionColumns(static.Columns, live.Columns),
		Records: records,
	}, nil
}

// ValidateShape checks that t exposes every column in ShapeColumns. It is not
// called by Merge; it exists for tables assembled by other means.
func ValidateShape(t Table) error {
	var missing []string
	for _, col := range ShapeColumns {
		if !hasColumn(t, col) {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return fmt.Errorf("%w: missing columns %v", ErrShape, missing)
	}
	return nil
}

func unionColumns(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, cols := range [][]string{a, b} {
		for _, c := range cols {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
	}
	return out
}
