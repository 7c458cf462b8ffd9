// Package domain models Yield Prophet job documents and the simulation
// specifications derived from them.
//
// # Job Documents
//
// A job describes one paddock: its weather station, soil, layered soil
// samples, stubble, management history and the report the grower asked for.
// Jobs arrive as JSON on the source topic; operators can also write them as
// YAML for the ypctl tool. Both encodings share field names.
//
// # Dates
//
// All dates are calendar dates ([civil.Date]) written as yyyy-mm-dd. The zero
// date means "not set". A job's now date separates observed history from the
// simulated future; when a job omits it the service uses today.
//
// # Sample Units
//
// Soil water is either gravimetric (g/g) or volumetric (mm/mm). Mineral
// nitrogen is either ppm or kg/ha. pH is measured in water or in CaCl2. Layer
// thickness is always in millimetres. The builder converts samples to
// volumetric water, kg/ha nitrogen and pH in water before handing them to the
// engine.
//
// # Management Events
//
// Management is a tagged list: every event has a "type" discriminator and a
// date, plus only the fields its kind needs:
//
//	sow                           crop, cultivar, density (plants/m2), depth (mm), row_spacing (mm)
//	fertilise                     fertiliser, amount (kg/ha)
//	irrigate                      amount (mm), efficiency (0-1)
//	tillage                       disturbance (low, medium, high)
//	stubble-removed               percent
//	reset-water                   (date only)
//	reset-nitrogen                (date only)
//	reset-surface-organic-matter  (date only)
//
// Reset events are never supplied by users; the builder inserts them at the
// sample dates so the engine reinitialises soil state where it was measured.
//
// # Simulation IDs
//
// Simulation spec IDs are name-based UUIDs (version 5) of job|variant. A
// replayed job produces the same IDs, so downstream consumers can upsert.
package domain
