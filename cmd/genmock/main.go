// Command genmock reads a static car park CSV and writes a deterministic mock
// availability feed for the ids it contains. The output has the same layout as
// the data.gov.sg carpark-availability payload, so it can be served by any
// static file server and pointed to with FEED_URL.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -static data/HDBCarparkInformation.csv \
//	  -out data/mock/carpark_availability.json \
//	  -skip-every 10
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"hash/fnv"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/carpark-etl/internal/domain"
)

// feedTime is the fixed pull time stamped on every generated payload.
var feedTime = time.Date(2025, time.March, 8, 23, 16, 36, 0, time.FixedZone("SGT", 8*60*60))

var lotTypes = []string{"C", "Y", "H"}

type mockInfo struct {
	TotalLots     string `json:"total_lots"`
	LotType       string `json:"lot_type"`
	LotsAvailable string `json:"lots_available"`
}

type mockEntry struct {
	CarparkInfo    []mockInfo `json:"carpark_info"`
	CarparkNumber  string     `json:"carpark_number"`
	UpdateDatetime string     `json:"update_datetime"`
}

type mockItem struct {
	Timestamp   string      `json:"timestamp"`
	CarparkData []mockEntry `json:"carpark_data"`
}

type mockFeed struct {
	Items []mockItem `json:"items"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	staticPath := flag.String("static", "", "static car park CSV to take ids from")
	out := flag.String("out", "", "output path for the mock feed JSON")
	skipEvery := flag.Int("skip-every", 10, "leave every Nth car park out of the feed (0 keeps all)")
	flag.Parse()

	if *staticPath == "" || *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -static, -out")
	}

	static, err := loadStatic(*staticPath)
	if err != nil {
		return fmt.Errorf("loading %s: %w", *staticPath, err)
	}

	feed := buildFeed(static, *skipEvery)
	entries := feed.Items[0].CarparkData
	log.Printf("static: %d car parks, feed: %d entries", len(static.Records), len(entries))

	data, err := json.MarshalIndent(feed, "", "  ")
	if err != nil {
		return err
	}

	// Round-trip through the real normalizer so a bad fixture never ships.
	live, err := domain.ParseFeed(data)
	if err != nil {
		return fmt.Errorf("generated feed does not parse: %w", err)
	}
	if live.Dropped > 0 {
		return fmt.Errorf("generated feed has %d malformed entries", live.Dropped)
	}

	if err := writeFile(*out, data); err != nil {
		return fmt.Errorf("writing feed: %w", err)
	}
	log.Printf("wrote mock feed: %s", *out)

	printStats(static, live)
	return nil
}

func loadStatic(path string) (domain.StaticTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.StaticTable{}, err
	}
	defer f.Close()
	return domain.ParseStaticCSV(f)
}

func buildFeed(static domain.StaticTable, skipEvery int) mockFeed {
	entries := make([]mockEntry, 0, len(static.Records))
	for i, rec := range static.Records {
		if skipEvery > 0 && (i+1)%skipEvery == 0 {
			continue
		}
		h := idHash(rec.ID)
		total := 50 + int(h%450)
		available := int((h >> 16) % uint64(total+1))
		updated := feedTime.Add(-time.Duration(h%600) * time.Second)

		entries = append(entries, mockEntry{
			CarparkInfo: []mockInfo{{
				TotalLots:     strconv.Itoa(total),
				LotType:       lotTypes[int(h>>32)%len(lotTypes)],
				LotsAvailable: strconv.Itoa(available),
			}},
			CarparkNumber:  rec.ID,
			UpdateDatetime: updated.Format("2006-01-02T15:04:05"),
		})
	}

	return mockFeed{Items: []mockItem{{
		Timestamp:   feedTime.Format(time.RFC3339),
		CarparkData: entries,
	}}}
}

func idHash(id string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return h.Sum64()
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(static domain.StaticTable, live domain.LiveTable) {
	merged, err := domain.Merge(static, live)
	if err != nil {
		fmt.Printf("merge failed: %v\n", err)
		return
	}

	var matched, full, empty int
	for _, rec := range merged.Records {
		if !rec.HasLiveData() {
			continue
		}
		matched++
		switch {
		case rec.LotsAvailable == 0:
			empty++
		case rec.LotsAvailable == *rec.TotalLots:
			full++
		}
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Static car parks: %d\n", len(static.Records))
	fmt.Printf("Feed entries: %d\n", len(live.Records))
	fmt.Printf("Matched: %d, unmatched: %d\n", matched, len(merged.Records)-matched)
	fmt.Printf("No lots available: %d, all lots available: %d\n", empty, full)
	if len(merged.Records) > 0 {
		first := merged.Records[0]
		fmt.Printf("\nFirst car park: %s (live=%t)\n", first.ID, first.HasLiveData())
	}
}
