// Command validate checks a static car park CSV and an availability feed
// payload against each other: it loads both through the real domain parsers,
// merges them, and reports schema, key and coverage problems.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -static data/HDBCarparkInformation.csv \
//	  -feed data/mock/carpark_availability.json
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/couchcryptid/carpark-etl/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
	notes  []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) notef(format string, args ...any) {
	p.notes = append(p.notes, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	staticPath := flag.String("static", "", "path to the static car park CSV")
	feedPath := flag.String("feed", "", "path to a saved availability feed JSON payload")
	flag.Parse()

	if *staticPath == "" || *feedPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*staticPath, *feedPath); code != 0 {
		os.Exit(code)
	}
}

func run(staticPath, feedPath string) int {
	fmt.Println("=== Car Park Data Validation ===")
	fmt.Println()

	f, err := os.Open(staticPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: open static CSV: %v\n", err)
		return 1
	}
	static, staticErr := domain.ParseStaticCSV(f)
	f.Close()

	body, err := os.ReadFile(feedPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read feed JSON: %v\n", err)
		return 1
	}
	live, liveErr := domain.ParseFeed(body)

	phases := []*phase{
		validateStatic(static, staticErr),
		validateFeed(live, liveErr),
	}
	if staticErr == nil && liveErr == nil {
		phases = append(phases, validateMerge(static, live))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d static CSV, %d feed entries (%d dropped)\n",
		len(static.Records), len(live.Records), live.Dropped)

	for _, p := range phases {
		if len(p.notes) == 0 && p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for _, n := range p.notes {
			fmt.Printf("  note: %s\n", n)
		}
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Static dataset ──

func validateStatic(static domain.StaticTable, loadErr error) *phase {
	p := &phase{name: "Phase 1: Static Dataset (CSV)"}
	if loadErr != nil {
		p.errorf("load: %v", loadErr)
		return p
	}

	seen := make(map[string]int, len(static.Records))
	for i, rec := range static.Records {
		if first, dup := seen[rec.ID]; dup {
			p.notef("row %d: %s %q repeats row %d", i+1, domain.ColumnID, rec.ID, first)
			continue
		}
		seen[rec.ID] = i + 1

		if rec.Address == nil {
			p.notef("row %d (%s): no address, unreachable by address search", i+1, rec.ID)
		}
	}
	return p
}

// ── Phase 2: Availability feed ──

func validateFeed(live domain.LiveTable, loadErr error) *phase {
	p := &phase{name: "Phase 2: Availability Feed (JSON)"}
	if loadErr != nil {
		p.errorf("load: %v", loadErr)
		return p
	}

	if live.FeedTimestamp == nil {
		p.notef("payload has no timestamp")
	}
	if live.Dropped > 0 {
		p.notef("%d malformed entries dropped", live.Dropped)
	}

	for i, rec := range live.Records {
		if rec.LotsAvailable > rec.TotalLots {
			p.notef("entry %d (%s): %d lots available exceeds total %d", i+1, rec.ID, rec.LotsAvailable, rec.TotalLots)
		}
	}
	return p
}

// ── Phase 3: Merge ──
// Verifies the join keeps one row per static record and reports coverage.

func validateMerge(static domain.StaticTable, live domain.LiveTable) *phase {
	p := &phase{name: "Phase 3: Merge (static + live)"}

	merged, err := domain.Merge(static, live)
	if err != nil {
		p.errorf("merge: %v", err)
		return p
	}
	if err := domain.ValidateShape(merged); err != nil {
		p.errorf("shape: %v", err)
	}
	if len(merged.Records) != len(static.Records) {
		p.errorf("row count: expected %d, got %d", len(static.Records), len(merged.Records))
	}

	known := make(map[string]bool, len(static.Records))
	for _, rec := range static.Records {
		known[rec.ID] = true
	}
	var orphans int
	for _, rec := range live.Records {
		if !known[rec.ID] {
			orphans++
		}
	}

	var matched int
	for _, rec := range merged.Records {
		if rec.HasLiveData() {
			matched++
		}
	}

	p.notef("%d of %d car parks have live availability", matched, len(merged.Records))
	if orphans > 0 {
		p.notef("%d feed entries match no static car park", orphans)
	}
	return p
}
