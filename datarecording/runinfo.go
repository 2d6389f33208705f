package datarecording

import (
	"os"
	"strings"
	"time"
)

// RunInfoTable is the table that holds the properties of a run.
const RunInfoTable = "vm_run_info"

// RunInfo is one property of a run.
type RunInfo struct {
	Property string
	Value    string
}

// RunInfoRecorder records how a program was executed, together with any
// properties the program adds.
type RunInfoRecorder struct {
	recorder DataRecorder
	entries  []RunInfo
}

// NewRunInfoRecorder creates the run info table in the recorder.
func NewRunInfoRecorder(recorder DataRecorder) *RunInfoRecorder {
	recorder.CreateTable(RunInfoTable, RunInfo{})

	return &RunInfoRecorder{recorder: recorder}
}

// Start records the start time, the command line, and the working directory.
func (e *RunInfoRecorder) Start() {
	e.Add("Start Time", time.Now().Format(time.RFC3339Nano))
	e.Add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err == nil {
		e.Add("Working Directory", cwd)
	}
}

// Add records a property.
func (e *RunInfoRecorder) Add(property, value string) {
	e.entries = append(e.entries, RunInfo{Property: property, Value: value})
}

// End writes all properties along with the end time and flushes the
// recorder.
func (e *RunInfoRecorder) End() {
	e.Add("End Time", time.Now().Format(time.RFC3339Nano))

	for _, entry := range e.entries {
		e.recorder.InsertData(RunInfoTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}
