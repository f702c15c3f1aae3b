// Package histlog records the period-by-period history of an insurance market
// simulation.
//
// A Log holds two kinds of series:
//   - Scalar series: one value per period (sector aggregates, premiums, counters)
//   - Matrix series: one row per firm, one column per period
//
// # Invariants
//
// The Log keeps an explicit period counter. Record checks after every period
// that:
//   - every scalar series has exactly Periods() values
//   - every matrix row has exactly Periods() values
//   - every matrix series has one row per firm of its population
//
// Firms that enter mid-run get a zero-filled row covering the periods already
// recorded, so AddInsurer and AddReinsurer keep matrices rectangular without a
// check of their own. Rows are addressed by a stable EntityID
// handed out at entry and are always output in entry order.
//
// # Usage
//
// The orchestrator calls AddInsurer or AddReinsurer when a firm is created, and
// Record (or RecordMap) exactly once per period. Record validates the whole
// period before touching any series, so a rejected period leaves the log
// unchanged.
//
// A Log is not safe for concurrent use. Ensemble runs give every replication its
// own Log.
package histlog
