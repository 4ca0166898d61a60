package domain

import "time"

// Column names shared by the static CSV header, the normalized live table and
// the merged table. The merge key is ColumnID.
const (
	ColumnID               = "car_park_no"
	ColumnAddress          = "address"
	ColumnXCoord           = "x_coord"
	ColumnYCoord           = "y_coord"
	ColumnType             = "car_park_type"
	ColumnParkingSystem    = "type_of_parking_system"
	ColumnShortTermParking = "short_term_parking"
	ColumnFreeParking      = "free_parking"
	ColumnNightParking     = "night_parking"
	ColumnDeckCount        = "car_park_decks"
	ColumnGantryHeight     = "gantry_height"
	ColumnHasBasement      = "car_park_basement"

	ColumnUpdateTime    = "update_datetime"
	ColumnTotalLots     = "total_lots"
	ColumnLotType       = "lot_type"
	ColumnLotsAvailable = "lots_available"
	ColumnFeedTimestamp = "feed_timestamp"
)

// StaticColumns is the closed list of columns every static dataset must carry.
var StaticColumns = []string{
	ColumnID,
	ColumnAddress,
	ColumnXCoord,
	ColumnYCoord,
	ColumnType,
	ColumnParkingSystem,
	ColumnShortTermParking,
	ColumnFreeParking,
	ColumnNightParking,
	ColumnDeckCount,
	ColumnGantryHeight,
	ColumnHasBasement,
}

// LiveColumns is the column set produced by NormalizeFeed.
var LiveColumns = []string{
	ColumnID,
	ColumnUpdateTime,
	ColumnTotalLots,
	ColumnLotType,
	ColumnLotsAvailable,
	ColumnFeedTimestamp,
}

// StaticRecord is one facility from the reference dataset. Nil pointers mean
// the cell was empty in the source.
type StaticRecord struct {
	ID               string   `json:"car_park_no"`
	Address          *string  `json:"address,omitempty"`
	XCoord           *float64 `json:"x_coord,omitempty"`
	YCoord           *float64 `json:"y_coord,omitempty"`
	Type             *string  `json:"car_park_type,omitempty"`
	ParkingSystem    *string  `json:"type_of_parking_system,omitempty"`
	ShortTermParking *string  `json:"short_term_parking,omitempty"`
	FreeParking      *string  `json:"free_parking,omitempty"`
	NightParking     *string  `json:"night_parking,omitempty"`
	DeckCount        *int     `json:"car_park_decks,omitempty"`
	GantryHeight     *float64 `json:"gantry_height,omitempty"`
	HasBasement      *string  `json:"car_park_basement,omitempty"`
}

// LiveRecord is one facility's availability from a single feed pull.
// LotsAvailable may exceed TotalLots; the feed is allowed to be momentarily
// inconsistent.
type LiveRecord struct {
	ID            string  `json:"car_park_no"`
	UpdateTime    string  `json:"update_datetime"`
	TotalLots     int     `json:"total_lots"`
	LotType       *string `json:"lot_type,omitempty"`
	LotsAvailable int     `json:"lots_available"`
	FeedTimestamp *string `json:"feed_timestamp,omitempty"`
}

// MergedRecord is a static record with the live fields of its matching feed
// entry, if any. Live fields are nil when nothing matched, except
// LotsAvailable which defaults to 0.
type MergedRecord struct {
	StaticRecord

	UpdateTime    *string `json:"update_datetime,omitempty"`
	TotalLots     *int    `json:"total_lots,omitempty"`
	LotType       *string `json:"lot_type,omitempty"`
	LotsAvailable int     `json:"lots_available"`
	FeedTimestamp *string `json:"feed_timestamp,omitempty"`
}

// HasLiveData reports whether the record was matched by a feed entry.
func (r MergedRecord) HasLiveData() bool {
	return r.UpdateTime != nil
}

// Table is anything with a named column set. Shape and merge-key checks only
// look at columns, so tables assembled outside this package can be validated
// the same way.
type Table interface {
	ColumnNames() []string
}

// StaticTable is the validated output of ParseStaticCSV.
type StaticTable struct {
	Columns []string
	Records []StaticRecord
}

// ColumnNames implements Table.
func (t StaticTable) ColumnNames() []string { return t.Columns }

// LiveTable is the normalized output of one feed pull.
type LiveTable struct {
	Columns       []string
	Records       []LiveRecord
	FeedTimestamp *string
	// Dropped counts feed entries skipped by the per-record filter.
	Dropped int
}

// ColumnNames implements Table.
func (t LiveTable) ColumnNames() []string { return t.Columns }

// MergedTable is the joined, queryable table. It is never mutated after Merge
// returns it.
type MergedTable struct {
	Columns []string
	Records []MergedRecord
}

// ColumnNames implements Table.
func (t MergedTable) ColumnNames() []string { return t.Columns }

// Snapshot is one pipeline run's result: the merged table plus provenance.
type Snapshot struct {
	RunID         string
	BuiltAt       time.Time
	FeedTimestamp *string
	Table         MergedTable
	Query         *QueryService
}

// Age returns how long ago the snapshot was built, measured on the package clock.
func (s *Snapshot) Age() time.Duration {
	return clock.Since(s.BuiltAt)
}

func hasColumn(t Table, name string) bool {
	for _, c := range t.ColumnNames() {
		if c == name {
			return true
		}
	}
	return false
}
