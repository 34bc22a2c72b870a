package domain

import "errors"

// Errors surfaced to users. Wrap with fmt.Errorf("%w: ...") to add detail.
var (
	// ErrNotFound is returned when the data source does not recognize a well.
	ErrNotFound = errors.New("well not found")

	// ErrSourceUnavailable is returned on network or transport failure.
	ErrSourceUnavailable = errors.New("data source unavailable")

	// ErrMalformedData is returned when source records cannot be parsed
	// into (date, value) pairs.
	ErrMalformedData = errors.New("malformed data")

	// ErrModelUnavailable is returned when no model artifact was loaded.
	ErrModelUnavailable = errors.New("forecast model unavailable")

	// ErrInsufficientHistory is returned when a series has fewer than
	// MinHistory observations.
	ErrInsufficientHistory = errors.New("insufficient history")

	// ErrInvalidHorizon is returned for a non-positive or out of range horizon.
	ErrInvalidHorizon = errors.New("invalid forecast horizon")

	// ErrIncompleteFeatureRow is returned when a forecast row has an
	// unresolved lag.
	ErrIncompleteFeatureRow = errors.New("incomplete feature row")

	// ErrInvalidWellID is returned for a blank well identifier.
	ErrInvalidWellID = errors.New("well identifier is required")

	// ErrNoSessionData is returned when a view needs fetched data and the
	// session has none.
	ErrNoSessionData = errors.New("no well data loaded for this session")
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrNotFound, "not_found"},
	{ErrSourceUnavailable, "source_unavailable"},
	{ErrMalformedData, "malformed_data"},
	{ErrModelUnavailable, "model_unavailable"},
	{ErrInsufficientHistory, "insufficient_history"},
	{ErrInvalidHorizon, "invalid_horizon"},
	{ErrIncompleteFeatureRow, "incomplete_feature_row"},
	{ErrInvalidWellID, "invalid_well_id"},
	{ErrNoSessionData, "no_session_data"},
}

// ErrorKind returns a stable identifier for err, or "internal" when err does
// not wrap one of the package sentinels.
func ErrorKind(err error) string {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return "internal"
}
