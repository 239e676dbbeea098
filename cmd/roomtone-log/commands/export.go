package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/roomtone/roomtone-go/pkg/log"
)

// exportedEvent is the JSON shape of a log event.
type exportedEvent struct {
	Timestamp time.Time `json:"timestamp"`
	Category  string    `json:"category"`
	Direction string    `json:"direction,omitempty"`
	Target    string    `json:"target,omitempty"`
	Operation string    `json:"operation,omitempty"`
	Param     string    `json:"param,omitempty"`
	Message   string    `json:"message,omitempty"`
	Error     string    `json:"error,omitempty"`
}

func exported(event log.Event) exportedEvent {
	out := exportedEvent{
		Timestamp: event.Timestamp,
		Category:  event.Category.String(),
		Target:    event.Target,
		Operation: event.Operation,
		Param:     event.Param,
		Message:   event.Message,
		Error:     event.Err,
	}
	if event.Direction != log.DirectionNone {
		out.Direction = event.Direction.String()
	}
	return out
}

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func exportJSONL(reader *log.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if err := encoder.Encode(exported(event)); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *log.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"timestamp", "category", "direction", "target", "operation", "param", "message", "error"}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		direction := ""
		if event.Direction != log.DirectionNone {
			direction = event.Direction.String()
		}
		row := []string{
			event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z"),
			event.Category.String(),
			direction,
			event.Target,
			event.Operation,
			event.Param,
			event.Message,
			event.Err,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}
