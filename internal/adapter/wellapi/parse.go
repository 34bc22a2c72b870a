package wellapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/groundwater-dss-service/internal/domain"
)

// dateLayouts are the date encodings seen from the well data API, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"02-01-2006",
}

// record is one element of the API's JSON array. Fields stay raw so the
// parse step can report exactly which record is malformed.
type record struct {
	Date  json.RawMessage `json:"date"`
	Value json.RawMessage `json:"value"`
}

// ParseSeries turns a well data API response body into a TimeSeries.
//
// An object carrying an "error" field, or an empty array, means the API has
// no data for the well. Anything else that is not an array of (date, value)
// records is malformed.
func ParseSeries(body []byte) (domain.TimeSeries, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.TimeSeries{}, fmt.Errorf("%w: empty response", domain.ErrMalformedData)
	}

	if trimmed[0] == '{' {
		var e struct {
			Error *string `json:"error"`
		}
		if err := json.Unmarshal(trimmed, &e); err != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: %v", domain.ErrMalformedData, err)
		}
		if e.Error != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: %s", domain.ErrNotFound, *e.Error)
		}
		return domain.TimeSeries{}, fmt.Errorf("%w: expected an array of records", domain.ErrMalformedData)
	}

	var records []record
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return domain.TimeSeries{}, fmt.Errorf("%w: %v", domain.ErrMalformedData, err)
	}
	if len(records) == 0 {
		return domain.TimeSeries{}, fmt.Errorf("%w: no records returned", domain.ErrNotFound)
	}

	obs := make([]domain.Observation, len(records))
	for i, r := range records {
		d, err := parseDate(r.Date)
		if err != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: record %d: %v", domain.ErrMalformedData, i, err)
		}
		v, err := parseValue(r.Value)
		if err != nil {
			return domain.TimeSeries{}, fmt.Errorf("%w: record %d: %v", domain.ErrMalformedData, i, err)
		}
		obs[i] = domain.Observation{Date: d, Value: v}
	}
	return domain.NewTimeSeries(obs), nil
}

func parseDate(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, fmt.Errorf("missing date")
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return time.Time{}, fmt.Errorf("date %s is not a string", raw)
	}
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", s)
}

func parseValue(raw json.RawMessage) (float64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, fmt.Errorf("missing value")
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("value %s is not numeric", raw)
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value %q is not numeric", s)
	}
	return f, nil
}
