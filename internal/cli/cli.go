// Package cli implements the carpark command's actions and console output.
package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/couchcryptid/carpark-etl/internal/domain"
)

// Action names accepted on the command line.
const (
	ActionQuery  = "query"
	ActionSearch = "search"
	ActionView   = "view"
)

// NotAvailable is printed in place of any absent value.
const NotAvailable = "N/A"

const separator = "-------------------------------------------------"

// ErrUsage means the action or its argument was missing. Callers print usage
// and exit successfully.
var ErrUsage = errors.New("usage")

// Command is one parsed invocation.
type Command struct {
	Action string
	Target string
}

// Parse reads "<action> <target...>". Target words are joined with single
// spaces so unquoted addresses still work.
func Parse(args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, ErrUsage
	}
	action := strings.ToLower(args[0])
	switch action {
	case ActionQuery, ActionSearch, ActionView:
	default:
		return Command{}, fmt.Errorf("unknown action %q", args[0])
	}

	target := strings.TrimSpace(strings.Join(args[1:], " "))
	if target == "" {
		return Command{}, ErrUsage
	}
	return Command{Action: action, Target: target}, nil
}

// Usage writes the command synopsis.
func Usage(w io.Writer) {
	fmt.Fprintln(w, "usage: carpark <action> <target>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "actions:")
	fmt.Fprintln(w, "  query <car_park_no>   show details and availability of one car park")
	fmt.Fprintln(w, "  search <address>      list car parks whose address contains the text")
	fmt.Fprintln(w, "  view <car_park_no>    show when the car park's availability was last updated")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "environment:")
	fmt.Fprintln(w, "  STATIC_SOURCE         static CSV path or s3://bucket/key (required)")
	fmt.Fprintln(w, "  FEED_URL              availability feed URL")
	fmt.Fprintln(w, "  FEED_TIMEOUT          feed request timeout (default 10s)")
}

// Execute runs cmd against q and writes the result to w.
func Execute(w io.Writer, q *domain.QueryService, cmd Command) error {
	switch cmd.Action {
	case ActionQuery:
		rec, ok := q.ByID(cmd.Target)
		if !ok {
			_, err := fmt.Fprintln(w, "No data found for the specified car park number.")
			return err
		}
		return WriteDetails(w, rec)

	case ActionSearch:
		results := q.ByAddressSubstring(cmd.Target)
		if len(results) == 0 {
			_, err := fmt.Fprintln(w, "No data found for the specified address.")
			return err
		}
		for _, rec := range results {
			if err := WriteDetails(w, rec); err != nil {
				return err
			}
			if _, err := fmt.Fprintln(w, separator); err != nil {
				return err
			}
		}
		return nil

	case ActionView:
		updated, found := q.LastUpdate(cmd.Target)
		if !found {
			_, err := fmt.Fprintln(w, "No data found for the specified car park number.")
			return err
		}
		_, err := fmt.Fprintf(w, "Last Update Time: %s\n", orNA(updated))
		return err
	}
	return fmt.Errorf("unknown action %q", cmd.Action)
}

// WriteDetails prints one car park as a block of labelled lines.
func WriteDetails(w io.Writer, rec domain.MergedRecord) error {
	lines := []string{
		"Car Park Details:",
		"Car Park No: " + rec.ID,
		"Address: " + orNA(rec.Address),
		"Operating Hours: " + orNA(rec.ShortTermParking),
		"Rules: " + rules(rec),
		"Parking System: " + orNA(rec.ParkingSystem),
		fmt.Sprintf("Capacity: Total lots: %s, Lots available: %d", intOrNA(rec.TotalLots), rec.LotsAvailable),
		fmt.Sprintf("Coordinates: (x: %s, y: %s)", floatOrNA(rec.XCoord), floatOrNA(rec.YCoord)),
		"Update Time: " + orNA(rec.UpdateTime),
		"Feed Timestamp: " + orNA(rec.FeedTimestamp),
	}
	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func rules(rec domain.MergedRecord) string {
	if rec.FreeParking == nil && rec.NightParking == nil {
		return NotAvailable
	}
	return fmt.Sprintf("Free parking: %s; Night parking: %s", orNA(rec.FreeParking), orNA(rec.NightParking))
}

func orNA(s *string) string {
	if s == nil {
		return NotAvailable
	}
	return *s
}

func intOrNA(n *int) string {
	if n == nil {
		return NotAvailable
	}
	return strconv.Itoa(*n)
}

func floatOrNA(f *float64) string {
	if f == nil {
		return NotAvailable
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}
