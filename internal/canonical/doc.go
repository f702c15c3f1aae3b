// Package canonical renders history log content as deterministic JSON text.
//
// The same logical content always produces the same bytes:
//   - Object keys sorted by UTF-16 code units
//   - Strings NFC normalized, no HTML escaping
//   - Floats in the shortest form that parses back to the same float64
//   - NaN and ±Inf as the strings "NaN", "Infinity" and "-Infinity"
//   - null is rejected
//
// Persistence writes one rendering per line, and replication digests are computed
// over the rendering of the transport form, so two workers that produced identical
// logs also produce identical digests.
package canonical
