// Package weather builds the daily weather series handed to the crop
// simulation engine.
//
// # Series
//
// A [Table] holds one [Row] per calendar day. Rows carry the four tracked
// fields in a fixed order:
//
//	radn  solar radiation (MJ/m2)
//	maxt  maximum temperature (oC)
//	mint  minimum temperature (oC)
//	rain  rainfall (mm)
//
// Tables built from the weather provider are contiguous: consecutive rows
// differ by exactly one day. Lookups compute a row's position from its date
// offset and fail with [ErrNonConsecutiveDate] when the row found there has a
// different date, so a gap in provider data surfaces instead of shifting
// values onto the wrong day.
//
// # Provenance codes
//
// Every row carries a four character code string, one character per tracked
// field, recording which source last wrote that value:
//
//	S  SILO data for a single-season file
//	H  historical SILO data in a long-term file
//	O  observed at the paddock
//	P  forecast
//
// Lowercase codes mark current-season data pasted into another year's slice
// of a long-term file ("what if that year had this year's rain").
//
// # Files
//
// Single-season files cover one season window. Long-term files re-date one
// slice of history per prior year onto the season's calendar and reapply the
// same observed patch to each, so row i of every long-term file falls on the
// same day of the season. Deciles of cumulative monthly rainfall are computed
// from the same history as a side artifact.
package weather
