package domain

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"
)

// utf8BOM is stripped from the first header cell; data.gov.sg exports carry one.
const utf8BOM = "\ufeff"

// ParseStaticCSV reads the reference dataset, trims every header name and cell,
// turns empty cells into absent values, coerces the numeric columns and
// validates the schema. Any failure rejects the whole input.
func ParseStaticCSV(r io.Reader) (StaticTable, error) {
	reader := csv.NewReader(r)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return StaticTable{}, fmt.Errorf("%w: no header row", ErrEmptyInput)
	}
	if err != nil {
		return StaticTable{}, fmt.Errorf("%w: read header: %v", ErrParse, err)
	}

	columns, index, err := cleanHeader(header)
	if err != nil {
		return StaticTable{}, err
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return StaticTable{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	if len(rows) == 0 {
		return StaticTable{}, fmt.Errorf("%w: header present but no data rows", ErrEmptyInput)
	}

	if missing := missingColumns(index, StaticColumns); len(missing) > 0 {
		return StaticTable{}, fmt.Errorf("%w: missing required columns %v", ErrSchema, missing)
	}

	records := make([]StaticRecord, 0, len(rows))
	for i, row := range rows {
		rec, err := parseStaticRow(row, index)
		if err != nil {
			return StaticTable{}, fmt.Errorf("row %d: %w", i+1, err)
		}
		records = append(records, rec)
	}

	return StaticTable{Columns: columns, Records: records}, nil
}

// cleanHeader trims column names and maps each name to its position.
func cleanHeader(header []string) ([]string, map[string]int, error) {
	columns := make([]string, len(header))
	index := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		if _, dup := index[name]; dup && name != "" {
			return nil, nil, fmt.Errorf("%w: duplicate column %q", ErrParse, name)
		}
		columns[i] = name
		index[name] = i
	}
	return columns, index, nil
}

func missingColumns(index map[string]int, required []string) []string {
	var missing []string
	for _, col := range required {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	return missing
}

func parseStaticRow(row []string, index map[string]int) (StaticRecord, error) {
	cell := func(col string) *string {
		return optionalString(row[index[col]])
	}

	id := cell(ColumnID)
	if id == nil {
		return StaticRecord{}, fmt.Errorf("%w: empty %s", ErrSchema, ColumnID)
	}

	rec := StaticRecord{
		ID:               *id,
		Address:          cell(ColumnAddress),
		Type:             cell(ColumnType),
		ParkingSystem:    cell(ColumnParkingSystem),
		ShortTermParking: cell(ColumnShortTermParking),
		FreeParking:      cell(ColumnFreeParking),
		NightParking:     cell(ColumnNightParking),
		HasBasement:      cell(ColumnHasBasement),
	}

	var err error
	if rec.XCoord, err = optionalFloat(ColumnXCoord, cell(ColumnXCoord)); err != nil {
		return StaticRecord{}, err
	}
	if rec.YCoord, err = optionalFloat(ColumnYCoord, cell(ColumnYCoord)); err != nil {
		return StaticRecord{}, err
	}
	if rec.GantryHeight, err = optionalFloat(ColumnGantryHeight, cell(ColumnGantryHeight)); err != nil {
		return StaticRecord{}, err
	}
	if rec.DeckCount, err = optionalInt(ColumnDeckCount, cell(ColumnDeckCount)); err != nil {
		return StaticRecord{}, err
	}

	if rec.DeckCount != nil && *rec.DeckCount < 0 {
		return StaticRecord{}, fmt.Errorf("%w: %s must be non-negative, got %d", ErrSchema, ColumnDeckCount, *rec.DeckCount)
	}
	if rec.GantryHeight != nil && *rec.GantryHeight < 0 {
		return StaticRecord{}, fmt.Errorf("%w: %s must be non-negative, got %g", ErrSchema, ColumnGantryHeight, *rec.GantryHeight)
	}
	return rec, nil
}

// optionalString trims s and returns nil when nothing is left.
func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func optionalFloat(col string, s *string) (*float64, error) {
	if s == nil {
		return nil, nil
	}
	v, err := strconv.ParseFloat(*s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s %q is not a number", ErrSchema, col, *s)
	}
	return &v, nil
}

func optionalInt(col string, s *string) (*int, error) {
	if s == nil {
		return nil, nil
	}
	v, err := strconv.Atoi(*s)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q is not an integer", ErrSchema, col, *s)
	}
	return &v, nil
}
