package domain

import (
	"errors"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const staticHeader = "car_park_no,address,x_coord,y_coord,car_park_type,type_of_parking_system,short_term_parking,free_parking,night_parking,car_park_decks,gantry_height,car_park_basement\n"

const validStaticCSV = staticHeader +
	"ACB,BLK 270/271 ALBERT CENTRE BASEMENT CAR PARK,30314.7936,31490.4942,BASEMENT CAR PARK,ELECTRONIC PARKING,WHOLE DAY,NO,YES,1,1.80,Y\n" +
	"ACM,BLK 98A ALJUNIED CRESCENT,33758.4143,33695.5198,MULTI-STOREY CAR PARK,ELECTRONIC PARKING,WHOLE DAY,SUN & PH FR 7AM-10PM,YES,5,2.10,N\n"

func TestParseStaticCSV(t *testing.T) {
	t.Run("valid input", func(t *testing.T) {
		table, err := ParseStaticCSV(strings.NewReader(validStaticCSV))
		require.NoError(t, err)

		require.Len(t, table.Records, 2)
		assert.Equal(t, StaticColumns, table.Columns)

		acb := table.Records[0]
		assert.Equal(t, "ACB", acb.ID)
		require.NotNil(t, acb.Address)
		assert.Equal(t, "BLK 270/271 ALBERT CENTRE BASEMENT CAR PARK", *acb.Address)
		require.NotNil(t, acb.XCoord)
		assert.InDelta(t, 30314.7936, *acb.XCoord, 1e-9)
		require.NotNil(t, acb.YCoord)
		assert.InDelta(t, 31490.4942, *acb.YCoord, 1e-9)
		require.NotNil(t, acb.DeckCount)
		assert.Equal(t, 1, *acb.DeckCount)
		require.NotNil(t, acb.GantryHeight)
		assert.InDelta(t, 1.80, *acb.GantryHeight, 1e-9)
		assert.Equal(t, "Y", *acb.HasBasement)

		acm := table.Records[1]
		assert.Equal(t, "SUN & PH FR 7AM-10PM", *acm.FreeParking)
		assert.Equal(t, 5, *acm.DeckCount)
	})

	t.Run("trims header names and cells", func(t *testing.T) {
		dirty := "car_park_no ,address, x_coord,y_coord,car_park_type,type_of_parking_system,short_term_parking,free_parking,night_parking,car_park_decks,gantry_height,car_park_basement\n" +
			" ACB, BLK 270/271 ALBERT CENTRE BASEMENT CAR PARK ,30314.7936,31490.4942, BASEMENT CAR PARK,ELECTRONIC PARKING , WHOLE DAY, NO, YES, 1 ,1.80, Y\n"

		table, err := ParseStaticCSV(strings.NewReader(dirty))
		require.NoError(t, err)
		require.Len(t, table.Records, 1)

		rec := table.Records[0]
		assert.Equal(t, ColumnID, table.Columns[0])
		assert.Equal(t, ColumnXCoord, table.Columns[2])
		assert.Equal(t, "ACB", rec.ID)
		assert.Equal(t, "BLK 270/271 ALBERT CENTRE BASEMENT CAR PARK", *rec.Address)
		assert.Equal(t, "BASEMENT CAR PARK", *rec.Type)
		assert.Equal(t, "ELECTRONIC PARKING", *rec.ParkingSystem)
		assert.Equal(t, "WHOLE DAY", *rec.ShortTermParking)
		assert.Equal(t, "NO", *rec.FreeParking)
		assert.Equal(t, "YES", *rec.NightParking)
		assert.Equal(t, 1, *rec.DeckCount)
		assert.Equal(t, "Y", *rec.HasBasement)
	})

	t.Run("empty cells are absent", func(t *testing.T) {
		csv := staticHeader + "ACB,,,,BASEMENT CAR PARK,,  ,NO,YES,,,\n"
		table, err := ParseStaticCSV(strings.NewReader(csv))
		require.NoError(t, err)

		rec := table.Records[0]
		assert.Nil(t, rec.Address)
		assert.Nil(t, rec.XCoord)
		assert.Nil(t, rec.YCoord)
		assert.Nil(t, rec.ParkingSystem)
		assert.Nil(t, rec.ShortTermParking)
		assert.Nil(t, rec.DeckCount)
		assert.Nil(t, rec.GantryHeight)
		assert.Nil(t, rec.HasBasement)
		assert.Equal(t, "BASEMENT CAR PARK", *rec.Type)
	})

	t.Run("strips byte order mark", func(t *testing.T) {
		table, err := ParseStaticCSV(strings.NewReader("\ufeff" + validStaticCSV))
		require.NoError(t, err)
		assert.Equal(t, ColumnID, table.Columns[0])
	})
}

func TestParseStaticCSV_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr error
		msg     string
	}{
		{"empty file", "", ErrEmptyInput, "no header"},
		{"blank lines only", "\n\n", ErrEmptyInput, "no header"},
		{"header only", staticHeader, ErrEmptyInput, "no data rows"},
		{"ragged row", staticHeader + "ACB,BLK 1\n", ErrParse, ""},
		{"bare quote", staticHeader + "ACB,BLK \"1,1,1,a,b,c,d,e,1,1,Y\n", ErrParse, ""},
		{
			"missing address column",
			"car_park_no,x_coord,y_coord,car_park_type,type_of_parking_system,short_term_parking,free_parking,night_parking,car_park_decks,gantry_height,car_park_basement\n" +
				"ACB,1,1,BASEMENT,ELECTRONIC,WHOLE DAY,NO,YES,1,1.8,Y\n",
			ErrSchema, "address",
		},
		{"empty id", staticHeader + " ,BLK 1,1,1,a,b,c,d,e,1,1.8,Y\n", ErrSchema, "car_park_no"},
		{"non-numeric coordinate", staticHeader + "ACB,BLK 1,east,1,a,b,c,d,e,1,1.8,Y\n", ErrSchema, "x_coord"},
		{"non-integer deck count", staticHeader + "ACB,BLK 1,1,1,a,b,c,d,e,1.5,1.8,Y\n", ErrSchema, "car_park_decks"},
		{"negative deck count", staticHeader + "ACB,BLK 1,1,1,a,b,c,d,e,-1,1.8,Y\n", ErrSchema, "non-negative"},
		{"negative gantry height", staticHeader + "ACB,BLK 1,1,1,a,b,c,d,e,1,-2.1,Y\n", ErrSchema, "non-negative"},
		{"duplicate column", "car_park_no,car_park_no\nA,B\n", ErrParse, "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseStaticCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestParseStaticCSV_RejectsWholeInputOnLateFailure(t *testing.T) {
	csv := validStaticCSV + "BAD,BLK 3,1,1,a,b,c,d,e,two,1.8,Y\n"
	table, err := ParseStaticCSV(strings.NewReader(csv))
	require.ErrorIs(t, err, ErrSchema)
	assert.Contains(t, err.Error(), "row 3")
	assert.Empty(t, table.Records)
}

func TestParseStaticCSV_ReaderError(t *testing.T) {
	_, err := ParseStaticCSV(iotest.ErrReader(errors.New("disk on fire")))
	require.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestParseStaticCSV_OneRecordPerRow(t *testing.T) {
	var b strings.Builder
	b.WriteString(staticHeader)
	for i := 0; i < 50; i++ {
		b.WriteString(" ID")
		b.WriteByte(byte('A' + i%26))
		b.WriteString(" , Addr ,1,2,a,b,c,d,e,0,0,N\n")
	}

	table, err := ParseStaticCSV(strings.NewReader(b.String()))
	require.NoError(t, err)
	require.Len(t, table.Records, 50)
	for _, rec := range table.Records {
		assert.Equal(t, strings.TrimSpace(rec.ID), rec.ID)
		assert.Equal(t, "Addr", *rec.Address)
	}
}
