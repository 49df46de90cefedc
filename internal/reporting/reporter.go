// File: internal/reporting/reporter.go

// Package reporting writes collection and automation results to stdout or a
// file, as JSON for machine consumers or CSV for spreadsheets.
package reporting

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// Document is the envelope every report carries: what kind of result it is,
// which run produced it, when, and the payload itself.
type Document struct {
	Kind        string      `json:"kind"`
	RunID       string      `json:"run_id,omitempty"`
	GeneratedAt time.Time   `json:"generated_at"`
	Data        interface{} `json:"data"`
}

// Well-known document kinds.
const (
	KindFriends    = "friends"
	KindEngagement = "engagement"
	KindAutomation = "automation"
	KindCancel     = "cancel"
	KindUnfriend   = "unfriend"
)

// Reporter writes result documents to an output.
type Reporter interface {
	// Write emits a single document.
	Write(doc Document) error
	// Close finalizes the report and releases the underlying writer.
	Close() error
}

// nopWriteCloser wraps an io.Writer with a no-op Close.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error { return nil }

// New creates a reporter for the given format writing to outputPath, where
// "" or "stdout" means standard output.
func New(format, outputPath string) (Reporter, error) {
	var writer io.WriteCloser
	isStdOut := outputPath == "" || outputPath == "stdout"

	if isStdOut {
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	switch format {
	case "json", "":
		return NewJSONReporter(writer), nil
	case "csv":
		return NewCSVReporter(writer), nil
	default:
		if !isStdOut {
			writer.Close()
		}
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
}

// NewDocument stamps a payload with its kind and the current time.
func NewDocument(kind, runID string, data interface{}) Document {
	return Document{
		Kind:        kind,
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Data:        data,
	}
}

// FriendsDocument wraps a collected friends list.
func FriendsDocument(runID string, friends []schemas.Friend) Document {
	return NewDocument(KindFriends, runID, friends)
}

// EngagementDocument wraps the ranked engagement report.
func EngagementDocument(runID string, report schemas.EngagementReport) Document {
	return NewDocument(KindEngagement, runID, report)
}
