// Package persist writes history logs to disk as line-oriented text files.
//
// Each write renders the full log as one canonical JSON object on one line.
// Two run modes:
//   - ModeSingle truncates the target, leaving exactly one snapshot
//   - ModeEnsemble appends, so each replication adds one line to its bucket file
//
// Target paths come from a NamingFunc injected into the Writer. LegacyNaming
// reproduces the historical layout (history_logs.dat and
// {one,two,three,four}_history_logs.dat).
//
// The Writer does not create directories and does not lock files. Concurrent
// appenders to one bucket file must be serialized by the caller; the ensemble
// runner does this by funnelling every write through one coordinator goroutine.
package persist
