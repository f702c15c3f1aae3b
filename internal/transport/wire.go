package transport

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode renders the flat form as msgpack bytes.
func Encode(f Flat) ([]byte, error) {
	data, err := msgpack.Marshal(&f)
	if err != nil {
		return nil, fmt.Errorf("transport: msgpack encode flat: %w", err)
	}
	return data, nil
}

// Decode parses msgpack bytes produced by Encode. Structural checks happen in
// Deserialize, not here.
func Decode(data []byte) (Flat, error) {
	var f Flat
	if err := msgpack.Unmarshal(data, &f); err != nil {
		return Flat{}, fmt.Errorf("transport: msgpack decode flat: %w", err)
	}
	return f, nil
}
