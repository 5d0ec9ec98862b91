package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/smera-app/smera/internal/api/shared"
	"github.com/smera-app/smera/internal/domain"
	"github.com/smera-app/smera/internal/mutation"
	"github.com/smera-app/smera/internal/offline"
	"github.com/smera-app/smera/internal/retry"
)

func newTable(out io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
}

// shortID is the first block of a UUID, enough to tell rows apart.
func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func printSpaces(out io.Writer, spaces []domain.Space) {
	if len(spaces) == 0 {
		fmt.Fprintln(out, "No spaces yet. Create one with \"smera spaces create NAME\".")
		return
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tNAME\tCREATED")
	for _, s := range spaces {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", s.ID, s.Name, s.CreatedAt.Local().Format(time.DateOnly))
	}
	_ = tw.Flush()
}

func printTasks(out io.Writer, tasks []domain.Task) {
	if len(tasks) == 0 {
		fmt.Fprintln(out, "No tasks.")
		return
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tDONE\tPRIORITY\tDUE\tTITLE")
	for _, t := range tasks {
		done := ""
		if t.Completed {
			done = "x"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, done, t.Priority, due(t.DueDate, t.DueTime), t.Title)
	}
	_ = tw.Flush()
}

func printDraft(out io.Writer, d domain.TaskDraft) {
	fmt.Fprintf(out, "Parsed: %q", d.Title)
	if when := due(d.DueDate, d.DueTime); when != "" {
		fmt.Fprintf(out, ", due %s", when)
	}
	if d.Priority != "" {
		fmt.Fprintf(out, ", %s priority", d.Priority)
	}
	fmt.Fprintln(out)
}

func printTaskDetail(out io.Writer, t *domain.Task, updates []domain.TaskUpdate) {
	fmt.Fprintln(out, t.Title)
	fmt.Fprintf(out, "  priority: %s\n", t.Priority)
	if when := due(t.DueDate, t.DueTime); when != "" {
		fmt.Fprintf(out, "  due:      %s\n", when)
	}
	fmt.Fprintf(out, "  done:     %t\n", t.Completed)
	if t.Description != "" {
		fmt.Fprintf(out, "\n%s\n", t.Description)
	}
	if t.Summary != "" {
		fmt.Fprintf(out, "\nSummary:\n  %s\n", strings.ReplaceAll(t.Summary, "\n", "\n  "))
	}
	if len(updates) > 0 {
		fmt.Fprintln(out, "\nNotes:")
		for _, u := range updates {
			fmt.Fprintf(out, "  %s  %s\n", u.CreatedAt.Local().Format("2006-01-02 15:04"), u.Text)
		}
	}
}

func printUsage(out io.Writer, usage *shared.UsageResponse) {
	fmt.Fprintf(out, "Plan: %s (period from %s)\n", usage.Plan, usage.PeriodStart.Format(time.DateOnly))
	tw := newTable(out)
	fmt.Fprintln(tw, "FEATURE\tUSED\tLIMIT")
	for _, item := range usage.Items {
		limit := "unlimited"
		if item.Limit >= 0 {
			limit = strconv.Itoa(item.Limit)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\n", item.Feature, item.Used, limit)
	}
	_ = tw.Flush()
}

func printQueue(out io.Writer, ops []offline.QueuedOperation) {
	if len(ops) == 0 {
		fmt.Fprintln(out, "Queue is empty.")
		return
	}
	tw := newTable(out)
	fmt.Fprintln(tw, "ID\tTYPE\tSPACE\tQUEUED\tRETRIES\tLAST ERROR")
	for _, op := range ops {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\n",
			shortID(op.ID), op.Type(), shortID(op.SpaceID),
			op.Timestamp.Local().Format("2006-01-02 15:04:05"), op.Retries, op.LastError)
	}
	_ = tw.Flush()
}

func due(date, clock string) string {
	return strings.TrimSpace(date + " " + clock)
}

// printQueued reports a write that was saved offline. The cause is a raw
// transport failure, so it is shown as the text for its kind.
func printQueued(out io.Writer, outcome mutation.Outcome) {
	fmt.Fprintf(out, "Offline: %s\n", retry.UserMessage(retry.KindOf(outcome.Cause)))
	fmt.Fprintf(out, "Saved as %s; it will be sent on the next sync.\n", shortID(outcome.QueueID))
}
