// Package transport converts history logs to and from the flat form that
// workers ship to the coordinator at the end of a replication.
//
// The flat form is two equal-length sequences: keys and value rows. Key grammar:
//
//	name        scalar series; the row is the series
//	name[]      nested header; the row lists the ids of the nested rows in order
//	name[id]    one nested row (a firm's matrix row, or a peril category)
//
// Run metadata travels under the reserved keys number_riskmodels,
// rc_event_schedule_initial and rc_event_damage_initial, so Deserialize needs
// no schema beyond this grammar. Encode and Decode wrap the flat form in
// msgpack for the process boundary; float64 values cross it bit-exact.
package transport
