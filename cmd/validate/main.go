// Command validate backtests a model artifact against a well history. It
// holds out the last N days, forecasts them with the production engine from
// the remaining history, and checks the forecast contract and its accuracy.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -model groundwater_model.json \
//	  -json data/mock/well_response.json \
//	  -holdout 30 -max-mae 1.5
package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/couchcryptid/groundwater-dss-service/internal/adapter/wellapi"
	"github.com/couchcryptid/groundwater-dss-service/internal/dashboard"
	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
	"github.com/couchcryptid/groundwater-dss-service/internal/forecast"
	"github.com/couchcryptid/groundwater-dss-service/internal/model"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	modelPath string
	jsonPath  string
	csvPath   string
	holdout   int
	maxMAE    float64
	fillGaps  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.modelPath, "model", "groundwater_model.json", "path to the model artifact")
	flag.StringVar(&opts.jsonPath, "json", "", "well history in the well data API JSON format")
	flag.StringVar(&opts.csvPath, "csv", "", "well history as a date,value CSV")
	flag.IntVar(&opts.holdout, "holdout", 30, "number of trailing days to forecast and score")
	flag.Float64Var(&opts.maxMAE, "max-mae", 0, "fail when holdout MAE exceeds this; 0 disables")
	flag.BoolVar(&opts.fillGaps, "fill-gaps", true, "interpolate missing days before forecasting")
	flag.Parse()

	if (opts.jsonPath == "") == (opts.csvPath == "") || opts.holdout < 1 {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(opts); code != 0 {
		os.Exit(code)
	}
}

func run(opts options) int {
	fmt.Println("=== Forecast Backtest ===")
	fmt.Println()

	m, err := model.Load(opts.modelPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	series, err := loadSeries(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load history: %v\n", err)
		return 1
	}

	b := backtest{model: m, series: series, holdout: opts.holdout, maxMAE: opts.maxMAE, fillGaps: opts.fillGaps}
	phases := b.run(context.Background())

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
	fmt.Printf("Model: %s  History: %d points  Holdout: %d days\n", m.Name(), series.Len(), opts.holdout)
	if b.scored > 0 {
		fmt.Printf("Scored %d days: MAE %.4f  RMSE %.4f\n", b.scored, b.mae, b.rmse)
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
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

func loadSeries(opts options) (domain.TimeSeries, error) {
	if opts.csvPath != "" {
		f, err := os.Open(opts.csvPath)
		if err != nil {
			return domain.TimeSeries{}, err
		}
		defer f.Close()
		return dashboard.ReadCSV(f)
	}
	data, err := os.ReadFile(opts.jsonPath)
	if err != nil {
		return domain.TimeSeries{}, err
	}
	return wellapi.ParseSeries(data)
}

// backtest holds the inputs and the scores of one run.
type backtest struct {
	model    forecast.Regressor
	series   domain.TimeSeries
	holdout  int
	maxMAE   float64
	fillGaps bool

	result domain.ForecastResult
	scored int
	mae    float64
	rmse   float64
}

func (b *backtest) run(ctx context.Context) []*phase {
	history := b.series.Head(b.series.Len() - b.holdout)
	if b.fillGaps && history.Len() >= domain.MinHistory {
		history = history.FillDaily()
	}
	return []*phase{
		b.checkHistory(history),
		b.checkContract(ctx, history),
		b.checkAccuracy(),
	}
}

// ── Phase 1: History ──

func (b *backtest) checkHistory(history domain.TimeSeries) *phase {
	p := &phase{name: "Phase 1: History"}
	if b.series.Len() <= b.holdout {
		p.errorf("history has %d points, holdout needs more than %d", b.series.Len(), b.holdout)
		return p
	}
	if !b.series.IsSorted() {
		p.errorf("history is not strictly increasing by date")
	}
	if history.Len() < domain.MinHistory {
		p.errorf("%d points before the holdout, need at least %d", history.Len(), domain.MinHistory)
	}
	return p
}

// ── Phase 2: Forecast contract ──

func (b *backtest) checkContract(ctx context.Context, history domain.TimeSeries) *phase {
	p := &phase{name: "Phase 2: Forecast Contract"}
	if history.Len() == 0 {
		p.errorf("no history to forecast from")
		return p
	}

	result, err := forecast.Forecast(ctx, history, b.model, b.holdout)
	if err != nil {
		p.errorf("forecast failed: %v", err)
		return p
	}
	b.result = result

	if result.Len() != b.holdout {
		p.errorf("forecast has %d points, want %d", result.Len(), b.holdout)
	}
	last := history.Last().Date
	for i, pt := range result.Points {
		if want := domain.AddDays(last, i+1); !pt.Date.Equal(want) {
			p.errorf("point %d dated %s, want %s", i, pt.Date.Format("2006-01-02"), want.Format("2006-01-02"))
		}
		if math.IsNaN(pt.Value) || math.IsInf(pt.Value, 0) {
			p.errorf("point %d has non-finite value %v", i, pt.Value)
		}
	}
	return p
}

// ── Phase 3: Holdout accuracy ──

func (b *backtest) checkAccuracy() *phase {
	p := &phase{name: "Phase 3: Holdout Accuracy"}
	if b.result.Len() == 0 {
		p.errorf("no forecast to score")
		return p
	}

	actual := make(map[int64]float64, b.holdout)
	for _, o := range b.series.Tail(b.holdout).Observations() {
		actual[domain.DayNumber(o.Date)] = o.Value
	}

	var absSum, sqSum float64
	var missing []string
	for _, pt := range b.result.Points {
		v, ok := actual[domain.DayNumber(pt.Date)]
		if !ok {
			missing = append(missing, pt.Date.Format("2006-01-02"))
			continue
		}
		d := pt.Value - v
		absSum += math.Abs(d)
		sqSum += d * d
		b.scored++
	}
	if b.scored == 0 {
		p.errorf("no forecast day has an observed value")
		return p
	}
	b.mae = absSum / float64(b.scored)
	b.rmse = math.Sqrt(sqSum / float64(b.scored))

	if len(missing) > 0 {
		fmt.Printf("  note: %d forecast days have no observation: %s\n", len(missing), strings.Join(missing, ", "))
	}
	if b.maxMAE > 0 && b.mae > b.maxMAE {
		p.errorf("MAE %.4f exceeds limit %.4f", b.mae, b.maxMAE)
	}
	return p
}
