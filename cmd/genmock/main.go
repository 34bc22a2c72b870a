// Command genmock writes a deterministic synthetic well history for local
// development and tests: the well data API JSON response, the matching
// training CSV, and optionally a linear model artifact fitted to it.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -json-out data/mock/well_response.json \
//	  -csv-out data/mock/training_data.csv \
//	  -model-out data/mock/groundwater_model.json
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/dashboard"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/features"
	"github.com/couchcryptid/groundwater-dss-service/internal/model"
	"github.com/jonboulle/clockwork"
)

var baseDate = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// params shapes the synthetic series.
type params struct {
	days      int
	seed      uint64
	level     float64 // mean depth to water
	amplitude float64 // seasonal swing
	drift     float64 // change per year
	noise     float64 // stddev of daily noise
	gapEvery  int     // drop every n-th day; 0 keeps all
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	jsonOut := flag.String("json-out", "", "output path for the well data API response fixture")
	csvOut := flag.String("csv-out", "", "output path for the training CSV fixture")
	modelOut := flag.String("model-out", "", "optional output path for a linear model fitted to the series")
	p := params{}
	flag.IntVar(&p.days, "days", 6*365, "number of days to generate")
	flag.Uint64Var(&p.seed, "seed", 42, "random seed")
	flag.Float64Var(&p.level, "level", 35, "mean level")
	flag.Float64Var(&p.amplitude, "amplitude", 2.5, "seasonal amplitude")
	flag.Float64Var(&p.drift, "drift", 0.4, "linear drift per year")
	flag.Float64Var(&p.noise, "noise", 0.08, "daily noise standard deviation")
	flag.IntVar(&p.gapEvery, "gap-every", 0, "omit every n-th day to simulate missed readings")
	flag.Parse()

	if *jsonOut == "" || *csvOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -json-out, -csv-out")
	}

	series := generate(p)
	log.Printf("generated %d observations from %s to %s",
		series.Len(), series.First().Date.Format(time.DateOnly), series.Last().Date.Format(time.DateOnly))

	if err := writeJSON(*jsonOut, apiRecords(series)); err != nil {
		return fmt.Errorf("writing API fixture: %w", err)
	}
	log.Printf("wrote API fixture: %s", *jsonOut)

	if err := writeCSV(*csvOut, series); err != nil {
		return fmt.Errorf("writing CSV fixture: %w", err)
	}
	log.Printf("wrote CSV fixture: %s", *csvOut)

	if *modelOut != "" {
		// Fixed clock so the artifact is byte-for-byte reproducible.
		clock := clockwork.NewFakeClockAt(baseDate.AddDate(0, 0, p.days))
		if err := writeModel(*modelOut, series, clock); err != nil {
			return fmt.Errorf("writing model fixture: %w", err)
		}
		log.Printf("wrote model fixture: %s", *modelOut)
	}
	return nil
}

// generate builds a seasonal series with drift and Gaussian noise.
func generate(p params) domain.TimeSeries {
	rng := rand.New(rand.NewPCG(p.seed, p.seed^0x9e3779b97f4a7c15))
	obs := make([]domain.Observation, 0, p.days)
	for i := 0; i < p.days; i++ {
		noise := rng.NormFloat64() * p.noise
		if p.gapEvery > 0 && i%p.gapEvery == p.gapEvery-1 {
			continue
		}
		date := domain.AddDays(baseDate, i)
		season := p.amplitude * math.Cos(2*math.Pi*float64(date.YearDay()-45)/365.25)
		v := p.level + season + p.drift*float64(i)/365.25 + noise
		obs = append(obs, domain.Observation{Date: date, Value: math.Round(v*1000) / 1000})
	}
	return domain.NewTimeSeries(obs)
}

type apiRecord struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

func apiRecords(series domain.TimeSeries) []apiRecord {
	recs := make([]apiRecord, series.Len())
	for i, o := range series.Observations() {
		recs[i] = apiRecord{Date: o.Date.Format(time.DateOnly), Value: o.Value}
	}
	return recs
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func writeCSV(path string, series domain.TimeSeries) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := dashboard.WriteCSV(f, series); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeModel(path string, series domain.TimeSeries, clock clockwork.Clock) error {
	rows := features.TrainingRows(series.FillDaily())
	train, test := model.SplitChronological(rows, 0.8)
	m, err := model.FitLinear(train, 1e-3)
	if err != nil {
		return err
	}
	mae, r2, err := model.Evaluate(m, test)
	if err != nil {
		return err
	}
	m.TrainedAt = clock.Now()
	m.Metrics = model.TrainMetrics{TrainRows: len(train), TestRows: len(test), MAE: mae, R2: r2}
	log.Printf("model holdout: mae=%.4f r2=%.4f", mae, r2)
	return m.Save(path)
}
