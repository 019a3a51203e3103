package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/thomasrohde/rev/pkg/diagnostics"
)

// TraceSummary aggregates an NDJSON trace file.
type TraceSummary struct {
	RunID          string         `json:"runId"`
	TotalEvents    int            `json:"totalEvents"`
	Calls          int            `json:"calls"`
	Uncalls        int            `json:"uncalls"`
	CallsByFn      map[string]int `json:"callsByFn"`
	Undos          int            `json:"undos"`
	Loops          int            `json:"loops"`
	Iterations     int            `json:"iterations"`
	BudgetExceeded int            `json:"budgetExceeded"`
	OK             *bool          `json:"ok,omitempty"`
	StartTime      string         `json:"startTime,omitempty"`
	EndTime        string         `json:"endTime,omitempty"`
	DurationMs     float64        `json:"durationMs"`
}

type traceEvent struct {
	Event string         `json:"event"`
	RunID string         `json:"runId"`
	TS    string         `json:"ts"`
	Data  map[string]any `json:"data,omitempty"`
}

func newTraceCmd() *cobra.Command {
	var text bool
	cmd := &cobra.Command{
		Use:   "trace <file.jsonl>",
		Short: "Summarize a trace written by run --trace",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				printDiags(cmd.ErrOrStderr(), []diagnostics.Diagnostic{ioDiag(err)}, false)
				return &exitError{code: exitUsage}
			}
			defer f.Close()

			summary := computeTraceSummary(f)
			if text {
				printTraceSummaryText(cmd.OutOrStdout(), summary)
				return nil
			}
			b, err := json.Marshal(summary)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "print a human-readable summary instead of JSON")
	return cmd
}

func computeTraceSummary(r io.Reader) *TraceSummary {
	summary := &TraceSummary{
		CallsByFn: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var event traceEvent
		if err := json.Unmarshal([]byte(line), &event); err != nil {
			continue // skip invalid lines
		}

		summary.TotalEvents++
		if summary.RunID == "" {
			summary.RunID = event.RunID
		}

		switch event.Event {
		case "run_start":
			if summary.StartTime == "" {
				summary.StartTime = event.TS
			}
		case "run_end":
			summary.EndTime = event.TS
			if ok, found := event.Data["ok"].(bool); found {
				summary.OK = &ok
			}
		case "call_start", "uncall_start":
			if event.Event == "call_start" {
				summary.Calls++
			} else {
				summary.Uncalls++
			}
			if name, ok := event.Data["fn"].(string); ok {
				summary.CallsByFn[name]++
			}
		case "undo_start":
			summary.Undos++
		case "loop_end":
			summary.Loops++
			// JSON numbers decode as float64
			if n, ok := event.Data["iterations"].(float64); ok {
				summary.Iterations += int(n)
			}
		case "budget_exceeded":
			summary.BudgetExceeded++
		}
	}

	if summary.StartTime != "" && summary.EndTime != "" {
		start, err1 := parseTime(summary.StartTime)
		end, err2 := parseTime(summary.EndTime)
		if err1 == nil && err2 == nil {
			summary.DurationMs = float64(end.Sub(start).Microseconds()) / 1000
		}
	}

	return summary
}

func printTraceSummaryText(w io.Writer, s *TraceSummary) {
	fmt.Fprintf(w, "Run: %s\n", s.RunID)
	fmt.Fprintf(w, "Events: %d\n", s.TotalEvents)
	fmt.Fprintf(w, "Calls: %d forward, %d backward\n", s.Calls, s.Uncalls)
	names := make([]string, 0, len(s.CallsByFn))
	for name := range s.CallsByFn {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(w, "  %s: %d\n", name, s.CallsByFn[name])
	}
	fmt.Fprintf(w, "Undos: %d\n", s.Undos)
	fmt.Fprintf(w, "Loops: %d (%d iterations)\n", s.Loops, s.Iterations)
	if s.BudgetExceeded > 0 {
		fmt.Fprintf(w, "Budget exceeded: %d\n", s.BudgetExceeded)
	}
	if s.OK != nil {
		fmt.Fprintf(w, "OK: %t\n", *s.OK)
	}
	if s.DurationMs > 0 {
		fmt.Fprintf(w, "Duration: %.3fms\n", s.DurationMs)
	}
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err == nil {
		return t, nil
	}
	t, err = time.Parse(time.RFC3339, s)
	if err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("cannot parse time: %s", s)
}
