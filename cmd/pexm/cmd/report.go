package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/mensylisir/pexm/pkg/hostset"
	"github.com/mensylisir/pexm/pkg/pipeline"
)

type stageRow struct {
	index    int
	stage    pipeline.Stage
	outcome  pipeline.Outcome
	err      error
	duration time.Duration
}

// stageReport collects stage outcomes for the summary table printed after
// a run.
type stageReport struct {
	mu      sync.Mutex
	started time.Time
	rows    []stageRow
	now     func() time.Time
}

func newStageReport() *stageReport {
	return &stageReport{now: time.Now}
}

func (r *stageReport) StageStarted(index int, st pipeline.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = r.now()
}

func (r *stageReport) StageFinished(index int, st pipeline.Stage, outcome pipeline.Outcome, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, stageRow{
		index:    index,
		stage:    st,
		outcome:  outcome,
		err:      err,
		duration: r.now().Sub(r.started),
	})
}

func (r *stageReport) Render(w io.Writer) {
	r.mu.Lock()
	defer r.mu.Unlock()

	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "STAGE", "HOSTS", "OUTCOME", "DURATION"})
	table.SetAutoWrapText(false)
	for _, row := range r.rows {
		outcome := row.outcome.String()
		switch row.outcome {
		case pipeline.Succeeded:
			outcome = green(outcome)
		case pipeline.Tolerated, pipeline.Skipped:
			outcome = yellow(outcome)
		case pipeline.Failed:
			outcome = red(outcome)
		}
		table.Append([]string{
			fmt.Sprintf("%d", row.index+1),
			row.stage.Name,
			fmt.Sprintf("%d", len(row.stage.Targets)),
			outcome,
			row.duration.Round(time.Millisecond).String(),
		})
	}
	table.Render()
}

// renderStages prints the stage list of a run that has not happened yet.
func renderStages(w io.Writer, stages []pipeline.Stage) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"#", "STAGE", "POLICY", "HOSTS", "DESCRIPTION"})
	table.SetAutoWrapText(false)
	for i, st := range stages {
		hosts := hostset.Join(st.Targets)
		if hosts == "" {
			hosts = "-"
		}
		table.Append([]string{fmt.Sprintf("%d", i+1), st.Name, st.Kind.String(), hosts, st.Description})
	}
	table.Render()
}
