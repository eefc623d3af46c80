package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"igbot/pkg/ui"
)

// CSVMessage is one row of the messages file
type CSVMessage struct {
	Recipient string
	Text      string
}

// ParseMessagesCSV reads recipient,text rows. Extra columns are ignored and
// blank lines skipped; a row with fewer than two columns is an error.
func ParseMessagesCSV(r io.Reader) ([]CSVMessage, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var rows []CSVMessage
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse messages: %w", err)
		}

		if len(record) < 2 || strings.TrimSpace(record[0]) == "" {
			line, _ := reader.FieldPos(0)
			return nil, fmt.Errorf("messages line %d: expected recipient,text", line)
		}
		rows = append(rows, CSVMessage{
			Recipient: strings.TrimSpace(record[0]),
			Text:      record[1],
		})
	}
	return rows, nil
}

// MessagesFromCSV sends each row of the messages file to its recipient,
// waiting the configured send delay between rows
func (r *Runner) MessagesFromCSV(ctx context.Context, path string) (int, error) {
	if path == "" {
		path = r.files.MessagesCSV
	}
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open messages file: %w", err)
	}
	defer f.Close()

	rows, err := ParseMessagesCSV(f)
	if err != nil {
		return 0, err
	}

	for i, row := range rows {
		if i > 0 {
			ui.WaitNotice(r.out, "Pacing messages", r.flow.CSVSendDelay)
		}
		if err := r.pacer.Wait(ctx); err != nil {
			return i, err
		}

		r.printf("Messaging %s\n", row.Recipient)
		if err := r.send(ctx, "csv", row.Text, []string{row.Recipient}); err != nil {
			return i, err
		}
	}
	return len(rows), nil
}
