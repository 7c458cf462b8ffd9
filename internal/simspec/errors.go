package simspec

import "errors"

var (
	// ErrMissingSampleDate means the soil water sample has no date to anchor resets on.
	ErrMissingSampleDate = errors.New("missing soil water sample date")

	// ErrUnknownReport means no expander is registered for the report type.
	ErrUnknownReport = errors.New("unknown report type")

	// ErrNoSowing means a report that varies the sowing date has no sow event.
	ErrNoSowing = errors.New("no sow event")

	// ErrUnsupportedUnit means a sample declares a unit the builder cannot convert.
	ErrUnsupportedUnit = errors.New("unsupported sample unit")
)
