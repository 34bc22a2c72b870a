// Package domain models groundwater well observations and the features
// derived from them for level forecasting.
//
// # Data Source
//
// Well histories come from an external JSON API keyed by well number. Each
// record carries a date and a water level value. Readings are reduced to one
// value per UTC calendar day; when a source repeats a day, the record that
// appears last in the response wins.
//
// # Features
//
// A forecast model consumes six features per day, always in this order:
//
//	day_of_year   1–366
//	month         1–12
//	year          calendar year
//	week_of_year  ISO week, 1–53
//	lag_7d        level 7 calendar days earlier
//	lag_30d       level 30 calendar days earlier
//
// Lags are looked up by calendar date, not by row position. A row whose lag
// date has no value is invalid for inference and is dropped from training.
//
// # Errors
//
// Failures are reported through the sentinel errors in errors.go and are
// matched with errors.Is. [ErrorKind] maps them to stable identifiers for API
// responses.
package domain
