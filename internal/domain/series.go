package domain

import (
	"sort"
	"time"
)

// MinHistory is the number of observations needed before the first forecast
// day has both lag features available.
const MinHistory = 30

// Observation is a single water level reading for one calendar day.
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// TimeSeries is a well history sorted ascending by date with unique dates.
type TimeSeries struct {
	points []Observation
}

// NewTimeSeries normalizes observations into a TimeSeries. Dates are reduced
// to UTC calendar days and duplicate days keep the value that appears last in
// the input.
func NewTimeSeries(obs []Observation) TimeSeries {
	byDay := make(map[int64]int, len(obs))
	points := make([]Observation, 0, len(obs))
	for _, o := range obs {
		o.Date = Day(o.Date)
		key := DayNumber(o.Date)
		if i, ok := byDay[key]; ok {
			points[i].Value = o.Value
			continue
		}
		byDay[key] = len(points)
		points = append(points, o)
	}
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
	return TimeSeries{points: points}
}

// Len returns the number of observations.
func (s TimeSeries) Len() int { return len(s.points) }

// At returns the i-th observation.
func (s TimeSeries) At(i int) Observation { return s.points[i] }

// Observations returns a copy of the underlying observations.
func (s TimeSeries) Observations() []Observation {
	out := make([]Observation, len(s.points))
	copy(out, s.points)
	return out
}

// Values returns the observed values in date order.
func (s TimeSeries) Values() []float64 {
	out := make([]float64, len(s.points))
	for i, p := range s.points {
		out[i] = p.Value
	}
	return out
}

// First returns the earliest observation. It panics on an empty series.
func (s TimeSeries) First() Observation { return s.points[0] }

// Last returns the latest observation. It panics on an empty series.
func (s TimeSeries) Last() Observation { return s.points[len(s.points)-1] }

// IsSorted reports whether dates are strictly increasing. Series built with
// NewTimeSeries always are; a zero value or hand-built slice may not be.
func (s TimeSeries) IsSorted() bool {
	for i := 1; i < len(s.points); i++ {
		if !s.points[i-1].Date.Before(s.points[i].Date) {
			return false
		}
	}
	return true
}

// Head returns the first n observations as a new series.
func (s TimeSeries) Head(n int) TimeSeries {
	if n > len(s.points) {
		n = len(s.points)
	}
	if n < 0 {
		n = 0
	}
	return TimeSeries{points: append([]Observation(nil), s.points[:n]...)}
}

// Tail returns the last n observations as a new series.
func (s TimeSeries) Tail(n int) TimeSeries {
	if n > len(s.points) {
		n = len(s.points)
	}
	if n < 0 {
		n = 0
	}
	return TimeSeries{points: append([]Observation(nil), s.points[len(s.points)-n:]...)}
}

// FillDaily returns a series with one observation per day between the first
// and last dates. Missing days are linearly interpolated between their
// neighbours; observed days are kept as-is.
func (s TimeSeries) FillDaily() TimeSeries {
	if len(s.points) < 2 {
		return TimeSeries{points: append([]Observation(nil), s.points...)}
	}
	first := DayNumber(s.First().Date)
	last := DayNumber(s.Last().Date)
	out := make([]Observation, 0, last-first+1)
	for i := 0; i < len(s.points)-1; i++ {
		a, b := s.points[i], s.points[i+1]
		out = append(out, a)
		gap := DayNumber(b.Date) - DayNumber(a.Date)
		for d := int64(1); d < gap; d++ {
			frac := float64(d) / float64(gap)
			out = append(out, Observation{
				Date:  AddDays(a.Date, int(d)),
				Value: a.Value + frac*(b.Value-a.Value),
			})
		}
	}
	out = append(out, s.Last())
	return TimeSeries{points: out}
}

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the calendar day n days after t.
func AddDays(t time.Time, n int) time.Time {
	return Day(t).AddDate(0, 0, n)
}

// DayNumber returns the number of days between the Unix epoch and t's
// calendar day. It is a cheap map key for day lookups.
func DayNumber(t time.Time) int64 {
	return Day(t).Unix() / 86400
}
