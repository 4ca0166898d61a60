// Package domain models public car park data from data.gov.sg and the
// load, normalize, merge and query steps over it.
//
// # Data Sources
//
// Static: the HDB Carpark Information CSV, one row per car park. Columns:
//
//	car_park_no, address, x_coord, y_coord, car_park_type,
//	type_of_parking_system, short_term_parking, free_parking, night_parking,
//	car_park_decks, gantry_height, car_park_basement
//
// Coordinates are SVY21 metres (Singapore plane grid), not WGS-84. The policy
// columns (short_term_parking, free_parking, night_parking) are free text such
// as "WHOLE DAY", "SUN & PH FR 7AM-10PM" or "YES"; they are kept verbatim.
// car_park_basement is "Y" or "N".
//
// Live: the carpark-availability endpoint, refreshed roughly every minute:
//
//	{"items":[{"timestamp":"2025-03-08T23:16:36+08:00",
//	  "carpark_data":[{"carpark_number":"A11",
//	    "update_datetime":"2025-03-08T23:16:32",
//	    "carpark_info":[{"total_lots":"410","lot_type":"C","lots_available":"236"}]}]}]}
//
// Lot counts arrive as strings. A car park can report several lot types (C for
// cars, Y for motorcycles, H for heavy vehicles); only the first block is used.
// update_datetime is local time without an offset and is passed through as text.
//
// # Missing Data
//
// Empty static cells become nil fields. Feed entries missing an id, update
// time or info block, or carrying non-integer counts, are dropped one by one;
// a pull fails only when nothing survives. After the merge, car parks absent
// from the feed report lots_available 0 and nil for every other live field.
package domain
