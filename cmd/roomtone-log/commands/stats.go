package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/roomtone/roomtone-go/pkg/log"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	Targets           map[string]*TargetStats
	Errors            int
	Warnings          int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// TargetStats holds statistics for a single device.
type TargetStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Events    int
	Flushes   int
	Errors    int
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	reader, err := log.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		Targets:           make(map[string]*TargetStats),
	}

	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read event: %w", err)
		}

		stats.TotalEvents++
		stats.EventsByCategory[event.Category]++
		stats.EventsByDirection[event.Direction]++

		if stats.TimeRange.Start.IsZero() || event.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = event.Timestamp
		}
		if event.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = event.Timestamp
		}

		if event.Target != "" {
			target, ok := stats.Targets[event.Target]
			if !ok {
				target = &TargetStats{FirstSeen: event.Timestamp, LastSeen: event.Timestamp}
				stats.Targets[event.Target] = target
			}
			target.Events++
			if event.Timestamp.After(target.LastSeen) {
				target.LastSeen = event.Timestamp
			}
			if event.Category == log.CategoryFlush {
				target.Flushes++
			}
			if event.Category == log.CategoryError {
				target.Errors++
			}
		}

		switch event.Category {
		case log.CategoryError:
			stats.Errors++
		case log.CategoryWarning:
			stats.Warnings++
		}
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Roomtone Client Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{
		log.CategoryRequest, log.CategoryPush, log.CategoryFlush,
		log.CategoryCache, log.CategoryState, log.CategoryError, log.CategoryWarning,
	} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-9s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-9s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Devices: %d\n", len(stats.Targets))
	if len(stats.Targets) > 0 {
		type targetInfo struct {
			id    string
			stats *TargetStats
		}
		targets := make([]targetInfo, 0, len(stats.Targets))
		for id, ts := range stats.Targets {
			targets = append(targets, targetInfo{id, ts})
		}
		sort.Slice(targets, func(i, j int) bool {
			return targets[i].stats.FirstSeen.Before(targets[j].stats.FirstSeen)
		})

		fmt.Fprintln(w)
		for _, t := range targets {
			duration := t.stats.LastSeen.Sub(t.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, %d flushes, duration %s\n",
				t.id, t.stats.Events, t.stats.Flushes, duration)
			if t.stats.Errors > 0 {
				fmt.Fprintf(w, "           Errors: %d\n", t.stats.Errors)
			}
		}
	}

	if stats.Errors > 0 || stats.Warnings > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d, Warnings: %d\n", stats.Errors, stats.Warnings)
	}
}
