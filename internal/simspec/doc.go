// Package simspec expands a paddock into the simulation specs the engine runs.
//
// A [Builder] first seeds a base simulation from the paddock: dates, corrected
// soil sample, stubble and management with reset events inserted at the sample
// dates. The paddock's report type then selects an [ExpandFunc] that turns the
// base into variants, each with its weather files resolved. New report types
// are added with [Builder.Register].
package simspec
