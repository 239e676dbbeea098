// Package commands implements the roomtone-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/roomtone/roomtone-go/pkg/log"
)

// ViewFilter specifies criteria for selecting events in the view command.
type ViewFilter struct {
	Category  *log.Category
	Direction *log.Direction
	Target    string
	Param     string
}

// matches reports whether the event passes the filter.
func (f ViewFilter) matches(event log.Event) bool {
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Target != "" && event.Target != f.Target {
		return false
	}
	if f.Param != "" && event.Param != f.Param {
		return false
	}
	return true
}

// formatEvent writes a human-readable representation of the event to w.
func formatEvent(w io.Writer, event log.Event) {
	ts := event.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")
	dir := "   "
	if event.Direction != log.DirectionNone {
		dir = fmt.Sprintf("%-3s", event.Direction)
	}
	fmt.Fprintf(w, "%s %-7s %s", ts, event.Category, dir)

	if event.Target != "" {
		fmt.Fprintf(w, " %s", event.Target)
	}
	if event.Operation != "" {
		fmt.Fprintf(w, " %s", event.Operation)
	}
	if event.Param != "" {
		fmt.Fprintf(w, " [%s]", event.Param)
	}
	if event.Message != "" {
		fmt.Fprintf(w, " %s", event.Message)
	}
	if event.Err != "" {
		fmt.Fprintf(w, " error=%q", event.Err)
	}
	fmt.Fprintln(w)
}

// ParseCategoryFlag parses a category string (case-insensitive).
func ParseCategoryFlag(s string) (log.Category, error) {
	switch strings.ToLower(s) {
	case "request":
		return log.CategoryRequest, nil
	case "push":
		return log.CategoryPush, nil
	case "flush":
		return log.CategoryFlush, nil
	case "cache":
		return log.CategoryCache, nil
	case "state":
		return log.CategoryState, nil
	case "error":
		return log.CategoryError, nil
	case "warning", "warn":
		return log.CategoryWarning, nil
	default:
		return 0, fmt.Errorf("invalid category: %s (must be request, push, flush, cache, state, error, or warning)", s)
	}
}

// ParseDirectionFlag parses a direction string (case-insensitive).
func ParseDirectionFlag(s string) (log.Direction, error) {
	switch strings.ToLower(s) {
	case "in":
		return log.DirectionIn, nil
	case "out":
		return log.DirectionOut, nil
	case "none":
		return log.DirectionNone, nil
	default:
		return 0, fmt.Errorf("invalid direction: %s (must be in, out, or none)", s)
	}
}

// RunView executes the view command.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}
		if !filter.matches(event) {
			continue
		}
		formatEvent(output, event)
	}
	return nil
}
