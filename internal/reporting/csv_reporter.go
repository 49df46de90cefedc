// File: internal/reporting/csv_reporter.go
package reporting

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/xkilldash9x/socialgraph-cli/api/schemas"
)

// CSVReporter renders the tabular document kinds (friends, engagement) as
// CSV. Other kinds are rejected so a caller never silently loses data.
type CSVReporter struct {
	writer io.WriteCloser
	csv    *csv.Writer
}

// NewCSVReporter takes ownership of the writer.
func NewCSVReporter(writer io.WriteCloser) *CSVReporter {
	return &CSVReporter{writer: writer, csv: csv.NewWriter(writer)}
}

func (r *CSVReporter) Write(doc Document) error {
	switch data := doc.Data.(type) {
	case []schemas.Friend:
		return r.writeFriends(data)
	case schemas.EngagementReport:
		return r.writeEngagement(data.Friends)
	case []schemas.EngagementRecord:
		return r.writeEngagement(data)
	default:
		return fmt.Errorf("csv output does not support %s reports", doc.Kind)
	}
}

func (r *CSVReporter) writeFriends(friends []schemas.Friend) error {
	if err := r.csv.Write([]string{"id", "name", "profile_url", "image_url"}); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, f := range friends {
		if err := r.csv.Write([]string{f.ID, f.Name, f.ProfileURL, f.ImageURL}); err != nil {
			return fmt.Errorf("writing friend row: %w", err)
		}
	}
	r.csv.Flush()
	return r.csv.Error()
}

func (r *CSVReporter) writeEngagement(records []schemas.EngagementRecord) error {
	header := []string{"friend_id", "friend_name", "reactions", "comments", "shares", "score"}
	if err := r.csv.Write(header); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}
	for _, rec := range records {
		row := []string{
			rec.FriendID,
			rec.FriendName,
			strconv.Itoa(rec.Reactions),
			strconv.Itoa(rec.Comments),
			strconv.Itoa(rec.Shares),
			strconv.Itoa(rec.Score),
		}
		if err := r.csv.Write(row); err != nil {
			return fmt.Errorf("writing engagement row: %w", err)
		}
	}
	r.csv.Flush()
	return r.csv.Error()
}

func (r *CSVReporter) Close() error {
	r.csv.Flush()
	if err := r.csv.Error(); err != nil {
		r.writer.Close()
		return err
	}
	return r.writer.Close()
}
