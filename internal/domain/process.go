package domain

import "fmt"

// ProcessKind identifies the type of analyzer invocation
type ProcessKind string

const (
	KindVersionCheck ProcessKind = "version-check"
	KindAnalyze      ProcessKind = "analyze"
	KindParse        ProcessKind = "parse"
)

// KindsByPriority lists kinds in dispatch order. A version probe must finish
// before analysis output is trusted, and parsing an existing report is cheap,
// so it never waits behind a long analysis run.
var KindsByPriority = []ProcessKind{KindVersionCheck, KindParse, KindAnalyze}

// ProcessStatus represents the lifecycle state of a process
type ProcessStatus string

const (
	StatusQueued   ProcessStatus = "queued"
	StatusRunning  ProcessStatus = "running"
	StatusFinished ProcessStatus = "finished"
	StatusErrored  ProcessStatus = "errored"
	StatusKilled   ProcessStatus = "killed"
)

// Terminal returns true once a process can no longer change state
func (s ProcessStatus) Terminal() bool {
	return s == StatusFinished || s == StatusErrored || s == StatusKilled
}

// ProjectTarget is the sentinel target for whole-project analysis.
// It deliberately cannot collide with a file path.
const ProjectTarget = "<project>"

// Request is a pending unit of work: a (kind, target) pair.
// For KindAnalyze the target is a file path or ProjectTarget; for KindParse
// it is the report file being parsed; KindVersionCheck carries no target.
type Request struct {
	Kind   ProcessKind
	Target string
}

// Identity returns the deduplication key for this request. Two requests with
// equal identity are duplicates and only one of them may sit in a queue.
func (r Request) Identity() string {
	return fmt.Sprintf("%s:%s", r.Kind, r.Target)
}
