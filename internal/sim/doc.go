// Package sim drives a history log with a small synthetic insurance market.
//
// A Source yields one Step per period: how many firms enter before the period
// and the values to record for it. Run pulls steps until the source is
// exhausted, adding firms and recording periods in the order the log requires.
//
// Market is the deterministic Source used by the CLI and the ensemble runner.
// Two markets built with the same Config and metadata produce identical steps.
// Its economics are a toy: the point is realistic shape (entry mid-run,
// catastrophes from the event schedule, bankruptcies), not plausible numbers.
package sim
