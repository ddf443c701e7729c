// Command genmock generates a deterministic synthetic season of weather
// observations and avalanche events for every forecast zone, in the CSV
// formats the featurize command ingests. The same seed always produces the
// same files, so fixtures are reproducible across machines.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock -start 2023-11-01 -days 120 -seed 42
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"avalanche-feature-etl/internal/domain"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", "data/mock", "output directory for generated CSVs")
	start := flag.String("start", "2023-11-01", "first day of the synthetic season (YYYY-MM-DD)")
	days := flag.Int("days", 120, "number of days to generate")
	seed := flag.Int64("seed", 42, "random seed")
	flag.Parse()

	startDate, err := time.Parse("2006-01-02", *start)
	if err != nil {
		return fmt.Errorf("parse -start: %w", err)
	}
	if *days < 1 {
		return fmt.Errorf("-days must be >= 1")
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(*seed))
	zones := domain.DefaultZones()

	weatherPath := filepath.Join(*outDir, "weather.csv")
	eventsPath := filepath.Join(*outDir, "avalanche_events.csv")

	weatherRows, eventRows := generate(rng, zones, startDate, *days)

	if err := writeCSV(weatherPath, weatherHeader, weatherRows); err != nil {
		return err
	}
	if err := writeCSV(eventsPath, eventsHeader, eventRows); err != nil {
		return err
	}

	fmt.Printf("wrote %d weather rows to %s\n", len(weatherRows), weatherPath)
	fmt.Printf("wrote %d avalanche events to %s\n", len(eventRows), eventsPath)
	return nil
}

var weatherHeader = []string{"Date", "Zone", "Snow_Depth", "New_Snow", "Temp_Min", "Temp_Max", "Wind_Speed_Avg", "Wind_Speed_Max", "Precipitation"}
var eventsHeader = []string{"Date", "Zone", "D_Size", "Type"}

// generate walks each zone through the season. Snow depth follows a random
// walk driven by snowfall and settlement; temperatures follow a seasonal
// sinusoid with daily noise. Roughly 3% of weather cells are dropped to
// exercise the imputation stage, and storm days can trigger avalanche events.
func generate(rng *rand.Rand, zones []domain.Zone, start time.Time, days int) ([][]string, [][]string) {
	var weather, events [][]string

	for _, zone := range zones {
		depth := 20 + rng.Float64()*40
		for d := 0; d < days; d++ {
			date := start.AddDate(0, 0, d)

			// season angle: coldest around mid-season
			angle := 2 * math.Pi * float64(d) / 365
			tempMean := -5 - 8*math.Sin(angle) + rng.NormFloat64()*4
			tempMin := tempMean - 3 - rng.Float64()*4
			tempMax := tempMean + 3 + rng.Float64()*4

			newSnow := 0.0
			storm := rng.Float64() < 0.25
			if storm {
				newSnow = rng.Float64() * 35
			}
			depth += newSnow - (1 + rng.Float64()*2) // settlement
			if depth < 0 {
				depth = 0
			}

			windAvg := 5 + rng.Float64()*30
			windMax := windAvg + rng.Float64()*50
			precip := newSnow * (0.8 + rng.Float64()*0.4) / 10

			row := []string{
				date.Format("2006-01-02"),
				zone.ID,
				cell(rng, depth, 1),
				cell(rng, newSnow, 1),
				cell(rng, tempMin, 1),
				cell(rng, tempMax, 1),
				cell(rng, windAvg, 1),
				cell(rng, windMax, 1),
				cell(rng, precip, 2),
			}
			weather = append(weather, row)

			// big storms on a loaded snowpack shed avalanches
			if storm && newSnow > 20 && rng.Float64() < 0.5 {
				n := 1 + rng.Intn(3)
				for i := 0; i < n; i++ {
					events = append(events, []string{
						date.Format("2006-01-02"),
						zone.ID,
						randomDSize(rng),
						randomType(rng),
					})
				}
			}
		}
	}
	return weather, events
}

// cell formats a value, dropping about 3% of cells to simulate sensor gaps.
func cell(rng *rand.Rand, v float64, prec int) string {
	if rng.Float64() < 0.03 {
		return "NA"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func randomDSize(rng *rand.Rand) string {
	switch r := rng.Float64(); {
	case r < 0.15:
		return "UNKNOWN"
	case r < 0.55:
		return "D1"
	case r < 0.85:
		return "D2"
	case r < 0.97:
		return "D3"
	default:
		return "D4"
	}
}

func randomType(rng *rand.Rand) string {
	switch r := rng.Float64(); {
	case r < 0.5:
		return "SLAB"
	case r < 0.75:
		return "LOOSE"
	case r < 0.9:
		return "WET"
	default:
		return ""
	}
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
