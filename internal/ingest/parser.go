package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/triage_inbox/backend/internal/models"
	"github.com/triage_inbox/backend/internal/service"
)

const (
	fieldDelimiter = ','
	quoteChar      = '"'
	minFields      = 3
)

// Record is one pre-split batch row: customer id, timestamp, then body
// fragments.
type Record []string

type Report struct {
	Messages []models.Message `json:"messages"`
	Parsed   int              `json:"parsed"`
	Dropped  []int            `json:"dropped_lines"`
}

// Parse turns a raw batch into inbound messages ordered by descending urgency.
// Malformed lines are skipped.
func Parse(text string) []models.Message {
	return ParseReport(text).Messages
}

// ParseReport is Parse plus the 1-based line numbers that were dropped. The
// header counts as line 1.
func ParseReport(text string) Report {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	records := make([]Record, 0, len(lines))
	for i := 1; i < len(lines); i++ {
		records = append(records, splitLine(lines[i]))
	}
	return FromRecords(records)
}

// FromRecords applies the record rules to rows that are already split.
// Record i gets id msg_<i+1>, matching its line index in a text batch.
func FromRecords(records []Record) Report {
	report := Report{Messages: []models.Message{}, Dropped: []int{}}
	for i, rec := range records {
		lineIdx := i + 1
		if len(rec) < minFields {
			report.Dropped = append(report.Dropped, lineIdx+1)
			continue
		}
		body := strings.TrimSpace(strings.Join(rec[2:], string(fieldDelimiter)))
		body = stripWrappingQuotes(body)
		report.Messages = append(report.Messages, models.Message{
			ID:           fmt.Sprintf("msg_%d", lineIdx),
			UserID:       strings.TrimSpace(rec[0]),
			Timestamp:    strings.TrimSpace(rec[1]),
			Body:         body,
			Direction:    models.DirectionInbound,
			UrgencyScore: service.ScoreUrgency(body),
			IsRead:       false,
			Status:       models.StatusOpen,
		})
	}
	sort.SliceStable(report.Messages, func(i, j int) bool {
		return report.Messages[i].UrgencyScore > report.Messages[j].UrgencyScore
	})
	report.Parsed = len(report.Messages)
	return report
}

// splitLine splits on delimiters outside quotes. Quote characters only toggle
// the quoted state and are not kept.
func splitLine(line string) Record {
	var (
		parts   Record
		current strings.Builder
		inQuote bool
	)
	for _, r := range line {
		switch {
		case r == quoteChar:
			inQuote = !inQuote
		case r == fieldDelimiter && !inQuote:
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}
	return append(parts, current.String())
}

func stripWrappingQuotes(s string) string {
	if len(s) >= 2 && s[0] == quoteChar && s[len(s)-1] == quoteChar {
		return s[1 : len(s)-1]
	}
	return s
}
