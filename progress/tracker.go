// Package progress tracks long-running tasks for display and answers
// cancellation checks from workers.
package progress

import (
	"sync"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/google/uuid"
)

// Stage names used by the CLI.
var (
	CrawlStages   = []string{"crawl"}
	ProcessStages = []string{"convert", "clean", "chunk", "embed"}
)

// Tracker owns Task records. It is safe for concurrent use.
type Tracker struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	tasks   map[string]*docingest.Task
	order   []string
	subs    map[int]func(docingest.Task)
	nextSub int
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		Now:   time.Now,
		tasks: make(map[string]*docingest.Task),
		subs:  make(map[int]func(docingest.Task)),
	}
}

// Create registers a queued task with the named stages.
func (t *Tracker) Create(taskType string, stageNames ...string) docingest.Task {
	now := t.now()
	task := &docingest.Task{
		ID:        uuid.New().String(),
		Type:      taskType,
		Status:    docingest.TaskQueued,
		Stages:    make([]docingest.Stage, len(stageNames)),
		CreatedAt: now,
		UpdatedAt: now,
	}
	for i, name := range stageNames {
		task.Stages[i] = docingest.Stage{Name: name, Status: docingest.StagePending}
	}

	t.mu.Lock()
	t.tasks[task.ID] = task
	t.order = append(t.order, task.ID)
	snapshot := copyTask(task)
	subs := t.subscribers()
	t.mu.Unlock()

	publish(subs, snapshot)
	return snapshot
}

// Get returns a copy of the task. Returns ENOTFOUND for unknown IDs.
func (t *Tracker) Get(id string) (docingest.Task, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[id]
	if !ok {
		return docingest.Task{}, docingest.Errorf(docingest.ENOTFOUND, "task %s not found", id)
	}
	return copyTask(task), nil
}

// List returns copies of all tasks in creation order.
func (t *Tracker) List() []docingest.Task {
	t.mu.Lock()
	defer t.mu.Unlock()

	tasks := make([]docingest.Task, 0, len(t.order))
	for _, id := range t.order {
		tasks = append(tasks, copyTask(t.tasks[id]))
	}
	return tasks
}

// UpdateStage sets one stage's status and progress, then recomputes the
// task aggregate. Updates to a finished or cancelled task are ignored.
func (t *Tracker) UpdateStage(id, name string, status docingest.StageStatus, progress int) error {
	return t.update(id, func(task *docingest.Task) error {
		for i := range task.Stages {
			if task.Stages[i].Name == name {
				task.Stages[i].Status = status
				task.Stages[i].Progress = clamp(progress)
				task.Progress, task.Status = ComputeProgress(task.Stages)
				return nil
			}
		}
		return docingest.Errorf(docingest.ENOTFOUND, "task %s has no stage %q", id, name)
	})
}

// Complete marks every stage and the task completed.
func (t *Tracker) Complete(id string) error {
	return t.update(id, func(task *docingest.Task) error {
		for i := range task.Stages {
			task.Stages[i].Status = docingest.StageCompleted
			task.Stages[i].Progress = 100
		}
		task.Progress = 100
		task.Status = docingest.TaskCompleted
		return nil
	})
}

// Fail marks the task failed and records the reason. Unfinished stages
// are marked failed.
func (t *Tracker) Fail(id string, reason error) error {
	return t.update(id, func(task *docingest.Task) error {
		for i := range task.Stages {
			if task.Stages[i].Status != docingest.StageCompleted {
				task.Stages[i].Status = docingest.StageFailed
			}
		}
		task.Status = docingest.TaskFailed
		if reason != nil {
			task.Error = reason.Error()
		}
		return nil
	})
}

// Cancel marks the task cancelled immediately. In-flight work is not
// waited for; workers observe the flag through IsCancelled.
func (t *Tracker) Cancel(id string) error {
	return t.update(id, func(task *docingest.Task) error {
		for i := range task.Stages {
			if task.Stages[i].Status != docingest.StageCompleted {
				task.Stages[i].Status = docingest.StageCancelled
			}
		}
		task.Status = docingest.TaskCancelled
		return nil
	})
}

// IsCancelled reports whether the task was cancelled.
func (t *Tracker) IsCancelled(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	task, ok := t.tasks[id]
	return ok && task.Status == docingest.TaskCancelled
}

// Canceller returns a cancellation check bound to one task.
func (t *Tracker) Canceller(id string) func() bool {
	return func() bool { return t.IsCancelled(id) }
}

// Subscribe registers fn to receive a copy of every task change. A task
// is published only when its status, progress or a stage changed.
func (t *Tracker) Subscribe(fn func(docingest.Task)) (unsubscribe func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := t.nextSub
	t.nextSub++
	t.subs[key] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			t.mu.Lock()
			defer t.mu.Unlock()
			delete(t.subs, key)
		})
	}
}

// update applies fn to a live task and publishes the result when it
// changed anything visible.
func (t *Tracker) update(id string, fn func(*docingest.Task) error) error {
	t.mu.Lock()
	task, ok := t.tasks[id]
	if !ok {
		t.mu.Unlock()
		return docingest.Errorf(docingest.ENOTFOUND, "task %s not found", id)
	}
	if task.Status.Terminal() {
		t.mu.Unlock()
		return nil
	}

	before := copyTask(task)
	if err := fn(task); err != nil {
		*task = before
		t.mu.Unlock()
		return err
	}
	if !changed(before, *task) {
		t.mu.Unlock()
		return nil
	}
	task.UpdatedAt = t.now()
	snapshot := copyTask(task)
	subs := t.subscribers()
	t.mu.Unlock()

	publish(subs, snapshot)
	return nil
}

func (t *Tracker) subscribers() []func(docingest.Task) {
	subs := make([]func(docingest.Task), 0, len(t.subs))
	for i := 0; i < t.nextSub; i++ {
		if fn, ok := t.subs[i]; ok {
			subs = append(subs, fn)
		}
	}
	return subs
}

func (t *Tracker) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

func publish(subs []func(docingest.Task), task docingest.Task) {
	for _, fn := range subs {
		fn(task)
	}
}

// ComputeProgress averages stage progress and derives the task status:
// running if any stage is active, completed if all are, otherwise the
// worst terminal stage (failed, then cancelled), else queued.
func ComputeProgress(stages []docingest.Stage) (int, docingest.TaskStatus) {
	if len(stages) == 0 {
		return 0, docingest.TaskQueued
	}

	sum := 0
	var active, completed, failed, cancelled int
	for _, s := range stages {
		sum += clamp(s.Progress)
		switch s.Status {
		case docingest.StageActive:
			active++
		case docingest.StageCompleted:
			completed++
		case docingest.StageFailed:
			failed++
		case docingest.StageCancelled:
			cancelled++
		}
	}
	progress := sum / len(stages)

	switch {
	case active > 0:
		return progress, docingest.TaskRunning
	case completed == len(stages):
		return progress, docingest.TaskCompleted
	case failed > 0:
		return progress, docingest.TaskFailed
	case cancelled > 0:
		return progress, docingest.TaskCancelled
	}
	return progress, docingest.TaskQueued
}

func changed(a, b docingest.Task) bool {
	if a.Status != b.Status || a.Progress != b.Progress || a.Error != b.Error || len(a.Stages) != len(b.Stages) {
		return true
	}
	for i := range a.Stages {
		if a.Stages[i] != b.Stages[i] {
			return true
		}
	}
	return false
}

func copyTask(task *docingest.Task) docingest.Task {
	c := *task
	c.Stages = append([]docingest.Stage(nil), task.Stages...)
	return c
}

func clamp(p int) int {
	return max(0, min(100, p))
}
