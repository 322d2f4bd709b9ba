package docingest

import "time"

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

// Task statuses.
const (
	TaskQueued    TaskStatus = "queued"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
	TaskCancelled TaskStatus = "cancelled"
)

// Terminal reports whether the status is final.
func (s TaskStatus) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed || s == TaskCancelled
}

// StageStatus is the state of one named sub-progress of a Task.
type StageStatus string

// Stage statuses.
const (
	StagePending   StageStatus = "pending"
	StageActive    StageStatus = "active"
	StageCompleted StageStatus = "completed"
	StageFailed    StageStatus = "failed"
	StageCancelled StageStatus = "cancelled"
)

// Task types.
const (
	TaskTypeCrawl   = "crawl"
	TaskTypeProcess = "process"
	TaskTypeRefresh = "refresh"
)

// Stage is a named sub-progress of a Task.
type Stage struct {
	Name     string      `json:"name"`
	Status   StageStatus `json:"status"`
	Progress int         `json:"progress"`
}

// Task is a long-running unit of work tracked for display.
type Task struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Status    TaskStatus `json:"status"`
	Progress  int        `json:"progress"`
	Stages    []Stage    `json:"stages"`
	Error     string     `json:"error,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// DocumentStage is a step of the per-document processing state machine.
type DocumentStage string

// Document stages in processing order. StageError is absorbing.
const (
	StageConverting DocumentStage = "CONVERTING"
	StageCleaning   DocumentStage = "CLEANING"
	StageChunking   DocumentStage = "CHUNKING"
	StageEmbedding  DocumentStage = "EMBEDDING"
	StageComplete   DocumentStage = "COMPLETE"
	StageError      DocumentStage = "ERROR"
)

// DocumentStages lists the working stages in order.
var DocumentStages = []DocumentStage{StageConverting, StageCleaning, StageChunking, StageEmbedding}

// Terminal reports whether the stage ends a document's processing.
func (s DocumentStage) Terminal() bool {
	return s == StageComplete || s == StageError
}

// StageEvent reports a document's stage transition during processing.
type StageEvent struct {
	URL   string        `json:"url"`
	Index int           `json:"index"`
	Stage DocumentStage `json:"stage"`

	// StageProgress is the share of the document's stages already done, 0-100.
	StageProgress int `json:"stageProgress"`

	// Completed counts documents that reached COMPLETE or ERROR,
	// each counted once. It never exceeds Total.
	Completed int `json:"completed"`
	Total     int `json:"total"`

	// Overall is Completed as a percentage of Total, rounded down.
	Overall int `json:"overall"`

	Err error `json:"-"`
}

// StageEventFunc receives stage events.
type StageEventFunc func(StageEvent)
