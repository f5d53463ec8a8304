package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sells-group/complaint-cli/internal/dispatch"
	"github.com/sells-group/complaint-cli/internal/model"
	"github.com/sells-group/complaint-cli/internal/monitoring"
)

const timeLayout = "2006-01-02 15:04"

// writeJSON pretty-prints v to out.
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatState writes the details of one workflow state to w.
func formatState(out io.Writer, st *model.WorkflowState) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Complaint:\t%s\n", st.ComplaintID)
	_, _ = fmt.Fprintf(w, "Source:\t%s (%s)\n", st.Source, st.ExternalID)
	_, _ = fmt.Fprintf(w, "Run:\t%d\n", st.Run)
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", st.Status)
	if st.LastCompleted != st.Status {
		_, _ = fmt.Fprintf(w, "Last completed:\t%s\n", st.LastCompleted)
	}
	if a := st.Analysis; a != nil {
		_, _ = fmt.Fprintf(w, "Category:\t%s\n", a.Category)
		_, _ = fmt.Fprintf(w, "Urgency:\t%s\n", a.Urgency)
		_, _ = fmt.Fprintf(w, "Sentiment:\t%s\n", a.Sentiment)
		_, _ = fmt.Fprintf(w, "Summary:\t%s\n", a.Summary)
	}
	if r := st.Routing; r != nil {
		_, _ = fmt.Fprintf(w, "Team:\t%s (%s, SLA %dh)\n", r.Team, r.Priority, r.SLAHours)
	}
	if t := st.Ticket; t != nil {
		_, _ = fmt.Fprintf(w, "Ticket:\t%s %s\n", t.Key, t.Link)
	}
	if n := len(st.Notifications); n > 0 {
		_, _ = fmt.Fprintf(w, "Notifications:\t%d\n", n)
	}
	if len(st.Attempts) > 0 {
		_, _ = fmt.Fprintf(w, "Attempts:\t%s\n", formatAttempts(st.Attempts))
	}
	_, _ = fmt.Fprintf(w, "Created:\t%s\n", st.CreatedAt.Format(timeLayout))
	_, _ = fmt.Fprintf(w, "Updated:\t%s\n", st.UpdatedAt.Format(timeLayout))
	if st.CompletedAt != nil {
		_, _ = fmt.Fprintf(w, "Completed:\t%s\n", st.CompletedAt.Format(timeLayout))
	}
	_ = w.Flush()

	if len(st.Errors) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "RUN\tSTAGE\tATTEMPT\tKIND\tAT\tMESSAGE")
	_, _ = fmt.Fprintln(w, "---\t-----\t-------\t----\t--\t-------")
	for _, e := range st.Errors {
		_, _ = fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			e.Run, e.Stage, e.Attempt, e.Kind, e.At.Format(timeLayout), truncate(e.Message, 80))
	}
	_ = w.Flush()
}

// formatAttempts renders attempt counts in stage order.
func formatAttempts(attempts map[model.Stage]int) string {
	var parts []string
	for _, stage := range model.Stages() {
		if n, ok := attempts[stage]; ok {
			parts = append(parts, fmt.Sprintf("%s=%d", stage, n))
		}
	}
	return strings.Join(parts, " ")
}

// formatStatesList writes a tabular list of workflow states to w.
func formatStatesList(out io.Writer, states []model.WorkflowState) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSOURCE\tEXTERNAL_ID\tRUN\tSTATUS\tUPDATED\tAGE")
	_, _ = fmt.Fprintln(w, "--\t------\t-----------\t---\t------\t-------\t---")

	for _, st := range states {
		age := st.UpdatedAt.Sub(st.CreatedAt).Round(time.Second).String()
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			st.ComplaintID,
			st.Source,
			truncate(st.ExternalID, 24),
			st.Run,
			st.Status,
			st.UpdatedAt.Format(timeLayout),
			age,
		)
	}
	_ = w.Flush()
}

// formatEvents writes an audit trail to w.
func formatEvents(out io.Writer, evs []model.AuditEvent) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "AT\tRUN\tTYPE\tSTAGE\tSTATUS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t---\t----\t-----\t------\t-----")
	for _, ev := range evs {
		_, _ = fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\n",
			ev.CreatedAt.Format("2006-01-02 15:04:05"),
			ev.Run,
			ev.Type,
			ev.Stage,
			ev.Status,
			ev.ErrorKind,
		)
	}
	_ = w.Flush()
}

// formatResults writes dispatch results to w and returns the number of
// failed results.
func formatResults(out io.Writer, results []dispatch.Result) int {
	failed := 0
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tOP\tSTATUS\tERROR")
	_, _ = fmt.Fprintln(w, "--\t--\t------\t-----")
	for _, r := range results {
		status := ""
		if r.State != nil {
			status = string(r.State.Status)
		}
		errMsg := ""
		if r.Err != nil {
			failed++
			errMsg = truncate(r.Err.Error(), 80)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.ID, r.Op, status, errMsg)
	}
	_ = w.Flush()
	return failed
}

// formatSnapshot writes workflow metrics to w.
func formatSnapshot(out io.Writer, snap *monitoring.MetricsSnapshot) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total complaints:\t%d\n", snap.Total)
	_, _ = fmt.Fprintf(w, "Completed:\t%d\n", snap.Completed)
	_, _ = fmt.Fprintf(w, "In progress:\t%d\n", snap.InProgress)
	_, _ = fmt.Fprintf(w, "Needs review:\t%d\n", snap.NeedsReview)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", snap.Failed)
	byStage := snap.FailedByStage()
	for _, stage := range model.Stages() {
		if n := byStage[stage]; n > 0 {
			_, _ = fmt.Fprintf(w, "  %s:\t%d\n", stage, n)
		}
	}
	if snap.Finished() > 0 {
		_, _ = fmt.Fprintf(w, "Failure rate:\t%.1f%%\n", snap.FailureRate*100)
	}
	_ = w.Flush()

	if len(snap.BySource) == 0 {
		return
	}
	sources := make([]string, 0, len(snap.BySource))
	for k := range snap.BySource {
		sources = append(sources, string(k))
	}
	sort.Strings(sources)

	_, _ = fmt.Fprintln(out)
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "SOURCE\tCOMPLAINTS")
	for _, s := range sources {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", s, snap.BySource[model.SourceKind(s)])
	}
	_ = w.Flush()
}

// formatAlerts writes triggered alerts to w.
func formatAlerts(out io.Writer, alerts []monitoring.Alert) {
	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "No alerts.")
		return
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "TYPE\tMESSAGE")
	_, _ = fmt.Fprintln(w, "----\t-------")
	for _, a := range alerts {
		_, _ = fmt.Fprintf(w, "%s\t%s\n", a.Type, a.Message)
	}
	_ = w.Flush()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
