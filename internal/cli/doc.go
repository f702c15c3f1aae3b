// Package cli implements the histlog command line.
//
// Commands:
//   - run: drive a synthetic market and persist its history (single or ensemble)
//   - inspect: summarize a persisted .dat history file
//   - decode: summarize a msgpack-encoded flat form
//   - export: rewrite replications from the store into ensemble bucket files
//
// Every command accepts --format text|json, --verbose and --config. Commands
// return *ExitError so main can map failures to exit codes.
package cli
