package persist

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/roach88/histlog/internal/canonical"
	"github.com/roach88/histlog/internal/histlog"
)

// Document is one line of a history log file.
type Document struct {
	Scalars  map[string][]float64
	Matrices map[string][][]float64
}

// Keys returns the series names of the document in sorted order.
func (d Document) Keys() []string {
	keys := make([]string, 0, len(d.Scalars)+len(d.Matrices))
	for k := range d.Scalars {
		keys = append(keys, k)
	}
	for k := range d.Matrices {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Periods returns the length of the first non-empty series.
func (d Document) Periods() int {
	for _, k := range d.Keys() {
		if v, ok := d.Scalars[k]; ok {
			return len(v)
		}
		if rows := d.Matrices[k]; len(rows) > 0 {
			return len(rows[0])
		}
	}
	return 0
}

// ReadDocuments parses a history log file, one Document per non-empty line.
// Tracked matrix keys parse as rows; other keys are rows only when their
// value is an array of arrays.
func ReadDocuments(path string) ([]Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	defer f.Close()

	var docs []Document
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 256*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		doc, err := parseDocument(line)
		if err != nil {
			return nil, fmt.Errorf("read documents: %s line %d: %w", path, lineNo, err)
		}
		docs = append(docs, doc)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read documents: %w", err)
	}
	return docs, nil
}

func parseDocument(line []byte) (Document, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return Document{}, err
	}

	doc := Document{
		Scalars:  make(map[string][]float64),
		Matrices: make(map[string][][]float64),
	}
	for k, v := range raw {
		if !histlog.IsMatrixKey(k) {
			var series []number
			if err := json.Unmarshal(v, &series); err == nil {
				doc.Scalars[k] = floats(series)
				continue
			}
		}
		var rows [][]number
		if err := json.Unmarshal(v, &rows); err != nil {
			return Document{}, fmt.Errorf("series %q is neither a list nor a list of lists", k)
		}
		doc.Matrices[k] = make([][]float64, len(rows))
		for i, row := range rows {
			doc.Matrices[k][i] = floats(row)
		}
	}
	return doc, nil
}

// number is a float that also accepts the tokens written for NaN and ±Inf.
type number float64

func (n *number) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var tok string
		if err := json.Unmarshal(b, &tok); err != nil {
			return err
		}
		f, ok := canonical.ParseFloatToken(tok)
		if !ok {
			return fmt.Errorf("invalid number %q", tok)
		}
		*n = number(f)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = number(f)
	return nil
}

func floats(ns []number) []float64 {
	out := make([]float64, len(ns))
	for i, n := range ns {
		out[i] = float64(n)
	}
	return out
}
