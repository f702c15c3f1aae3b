package canonical

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"unicode/utf16"

	"golang.org/x/text/unicode/norm"
)

// Marshal produces canonical JSON for v.
//
// Supported: string, bool, int, int64, float64, []float64, [][]float64, []int,
// [][]int, []string, []any and map[string]any (recursively).
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := marshalValue(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func marshalValue(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case nil:
		return fmt.Errorf("null is forbidden in canonical JSON")
	case string:
		return marshalString(buf, val)
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
		return nil
	case int:
		buf.WriteString(strconv.Itoa(val))
		return nil
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
		return nil
	case float64:
		return marshalFloat(buf, val)
	case []float64:
		return marshalArray(buf, len(val), func(i int) error { return marshalFloat(buf, val[i]) })
	case [][]float64:
		return marshalArray(buf, len(val), func(i int) error { return marshalValue(buf, val[i]) })
	case []int:
		return marshalArray(buf, len(val), func(i int) error {
			buf.WriteString(strconv.Itoa(val[i]))
			return nil
		})
	case [][]int:
		return marshalArray(buf, len(val), func(i int) error { return marshalValue(buf, val[i]) })
	case []string:
		return marshalArray(buf, len(val), func(i int) error { return marshalString(buf, val[i]) })
	case []any:
		return marshalArray(buf, len(val), func(i int) error {
			if err := marshalValue(buf, val[i]); err != nil {
				return fmt.Errorf("array[%d]: %w", i, err)
			}
			return nil
		})
	case map[string]any:
		return marshalObject(buf, val)
	default:
		return fmt.Errorf("unsupported type for canonical JSON: %T", v)
	}
}

// Tokens written in place of non-finite floats. JSON has no literal for them,
// so they are rendered as strings.
const (
	TokenNaN         = "NaN"
	TokenPosInfinity = "Infinity"
	TokenNegInfinity = "-Infinity"
)

// marshalFloat writes the shortest decimal form that round-trips to f, using
// exponent notation only outside [1e-6, 1e21) like ECMAScript. Non-finite
// values are written as quoted tokens.
func marshalFloat(buf *bytes.Buffer, f float64) error {
	switch {
	case math.IsNaN(f):
		buf.WriteString(`"` + TokenNaN + `"`)
		return nil
	case math.IsInf(f, 1):
		buf.WriteString(`"` + TokenPosInfinity + `"`)
		return nil
	case math.IsInf(f, -1):
		buf.WriteString(`"` + TokenNegInfinity + `"`)
		return nil
	}
	format := byte('f')
	if abs := math.Abs(f); abs != 0 && (abs < 1e-6 || abs >= 1e21) {
		format = 'e'
	}
	b := strconv.AppendFloat(nil, f, format, -1, 64)
	if format == 'e' {
		// e-07 -> e-7
		n := len(b)
		if n >= 4 && b[n-4] == 'e' && b[n-3] == '-' && b[n-2] == '0' {
			b[n-2] = b[n-1]
			b = b[:n-1]
		}
	}
	buf.Write(b)
	return nil
}

func marshalArray(buf *bytes.Buffer, n int, elem func(i int) error) error {
	buf.WriteByte('[')
	for i := 0; i < n; i++ {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := elem(i); err != nil {
			return err
		}
	}
	buf.WriteByte(']')
	return nil
}

func marshalObject(buf *bytes.Buffer, obj map[string]any) error {
	buf.WriteByte('{')
	for i, k := range SortedKeys(obj) {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := marshalString(buf, k); err != nil {
			return fmt.Errorf("key %q: %w", k, err)
		}
		buf.WriteByte(':')
		if err := marshalValue(buf, obj[k]); err != nil {
			return fmt.Errorf("value for key %q: %w", k, err)
		}
	}
	buf.WriteByte('}')
	return nil
}

// marshalString writes s NFC normalized with HTML escaping disabled.
func marshalString(buf *bytes.Buffer, s string) error {
	var tmp bytes.Buffer
	enc := json.NewEncoder(&tmp)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(norm.NFC.String(s)); err != nil {
		return err
	}
	// json.Encoder adds a trailing newline
	buf.Write(bytes.TrimSuffix(tmp.Bytes(), []byte{'\n'}))
	return nil
}

// ParseFloatToken reports the float a non-finite token stands for.
func ParseFloatToken(tok string) (float64, bool) {
	switch tok {
	case TokenNaN:
		return math.NaN(), true
	case TokenPosInfinity:
		return math.Inf(1), true
	case TokenNegInfinity:
		return math.Inf(-1), true
	}
	return 0, false
}

// SortedKeys returns the keys of obj ordered by UTF-16 code units.
// Go's native string order compares UTF-8 bytes, which differs above U+FFFF.
func SortedKeys(obj map[string]any) []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareUTF16)
	return keys
}

func compareUTF16(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))
	return slices.Compare(a16, b16)
}
