// File: internal/reporting/json_reporter.go
package reporting

import (
	"fmt"
	"io"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONReporter streams one indented JSON document per Write call.
type JSONReporter struct {
	writer io.WriteCloser
}

// NewJSONReporter takes ownership of the writer.
func NewJSONReporter(writer io.WriteCloser) *JSONReporter {
	return &JSONReporter{writer: writer}
}

func (r *JSONReporter) Write(doc Document) error {
	encoded, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s report: %w", doc.Kind, err)
	}
	encoded = append(encoded, '\n')
	if _, err := r.writer.Write(encoded); err != nil {
		return fmt.Errorf("writing %s report: %w", doc.Kind, err)
	}
	return nil
}

func (r *JSONReporter) Close() error {
	return r.writer.Close()
}
