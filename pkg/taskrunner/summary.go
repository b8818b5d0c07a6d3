package taskrunner

import (
	"fmt"
	"strings"
	"time"

	"github.com/tyemirov/assetpipe/internal/taskgraph"
)

// SummaryData aggregates the counters printed after a run.
type SummaryData struct {
	TotalTasks           int
	PipelineTasks        int
	Outputs              int
	OutputBytes          int64
	FailedTasks          int
	DurationHuman        string
	DurationMilliseconds int64
}

// SummaryFromOutcome derives summary counters from a run outcome.
func SummaryFromOutcome(outcome taskgraph.ExecutionOutcome) SummaryData {
	data := SummaryData{
		TotalTasks:           len(outcome.Tasks),
		PipelineTasks:        len(outcome.ExecutedPipelines()),
		FailedTasks:          outcome.FailedCount(),
		DurationHuman:        outcome.Duration.Round(time.Millisecond).String(),
		DurationMilliseconds: outcome.Duration.Milliseconds(),
	}
	for _, written := range outcome.Outputs() {
		data.Outputs++
		data.OutputBytes += written.Size
	}
	return data
}

// RenderSummaryLine returns the summary line printed after a run, or an empty string
// when no task was started.
func RenderSummaryLine(data SummaryData) string {
	if data.TotalTasks == 0 {
		return ""
	}

	parts := []string{
		fmt.Sprintf("Summary: tasks=%d", data.TotalTasks),
		fmt.Sprintf("pipelines=%d", data.PipelineTasks),
		fmt.Sprintf("outputs=%d", data.Outputs),
		fmt.Sprintf("bytes=%d", data.OutputBytes),
		fmt.Sprintf("failed=%d", data.FailedTasks),
	}

	durationHuman := strings.TrimSpace(data.DurationHuman)
	if durationHuman == "" {
		durationHuman = "0s"
	}

	parts = append(parts, fmt.Sprintf("duration_human=%s", durationHuman))
	parts = append(parts, fmt.Sprintf("duration_ms=%d", data.DurationMilliseconds))

	return strings.Join(parts, " ")
}
