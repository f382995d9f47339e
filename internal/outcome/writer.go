package outcome

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/tidwall/sjson"
)

// Format selects how results are printed.
type Format string

const (
	// FormatPlain prints one payload per line: strings verbatim, other
	// values as compact JSON.
	FormatPlain Format = "plain"
	// FormatJSON prints the whole result as one JSON document.
	FormatJSON Format = "json"
)

// ParseFormat validates an output format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPlain, FormatJSON:
		return Format(s), nil
	case "":
		return FormatPlain, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want plain or json)", s)
	}
}

// Writer prints results.
type Writer struct {
	Format Format
	// Print0 terminates plain entries with NUL instead of newline.
	Print0 bool
}

// Write prints r to w. Empty results print nothing. Records are always
// printed as a JSON object with action and selected fields.
func (wr Writer) Write(w io.Writer, r Result) error {
	switch r.Shape {
	case Empty:
		return nil
	case Record:
		doc, err := recordJSON(r)
		if err != nil {
			return err
		}
		return wr.line(w, doc)
	}

	if wr.Format == FormatJSON {
		data, err := json.Marshal(r.Value)
		if err != nil {
			return fmt.Errorf("encode result: %w", err)
		}
		return wr.line(w, string(data))
	}

	values := []any{r.Value}
	if r.Shape == Collection {
		values, _ = r.Value.([]any)
	}
	for _, v := range values {
		s, err := plainText(v)
		if err != nil {
			return err
		}
		if err := wr.line(w, s); err != nil {
			return err
		}
	}
	return nil
}

func (wr Writer) line(w io.Writer, s string) error {
	term := "\n"
	if wr.Print0 {
		term = "\x00"
	}
	_, err := io.WriteString(w, s+term)
	return err
}

func plainText(v any) (string, error) {
	switch val := v.(type) {
	case string:
		return val, nil
	case error:
		return "error: " + val.Error(), nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("encode result: %w", err)
	}
	return string(data), nil
}

func recordJSON(r Result) (string, error) {
	doc, err := sjson.Set(`{}`, "action", r.Action)
	if err != nil {
		return "", fmt.Errorf("encode action: %w", err)
	}
	doc, err = sjson.Set(doc, "selected", r.Value)
	if err != nil {
		return "", fmt.Errorf("encode selection: %w", err)
	}
	return doc, nil
}
