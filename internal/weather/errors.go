package weather

import "errors"

var (
	// ErrDataSourceUnavailable is returned when the weather provider cannot be
	// reached or answers with a transport-level failure.
	ErrDataSourceUnavailable = errors.New("weather data source unavailable")

	// ErrEmptyHistoricalSeries is returned when the provider answered but had
	// no rows for a query that starts in the past. Callers treat it as soft.
	ErrEmptyHistoricalSeries = errors.New("empty historical weather series")

	// ErrNonConsecutiveDate signals a gap or reordering in a daily series.
	ErrNonConsecutiveDate = errors.New("non-consecutive date in weather series")
)
