// Package ensemble runs independent replications of a simulation and collects
// their history logs.
//
// Each worker goroutine owns its own histlog.Log for the replication it is
// running. When a replication finishes the worker serializes the log, encodes
// the flat form with msgpack and ships the bytes to the coordinator, exactly
// as it would across a process boundary.
//
// The coordinator is a single goroutine. It decodes each payload, restores the
// log, appends it to the ensemble bucket file and optionally records it in the
// replication store. Because only the coordinator writes, appends to the
// shared bucket file are serialized without any file locking.
package ensemble
