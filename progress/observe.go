package progress

import (
	"sync"

	"github.com/fwojciec/docingest"
)

// ObserveStages returns a handler that folds pipeline events into the
// task's first four stage entries (convert, clean, chunk, embed). Each
// entry's progress is the share of documents past that stage. Repeated
// events for a document in the same stage are dropped, so the task sees
// at most one change per document per stage transition.
func (t *Tracker) ObserveStages(id string) docingest.StageEventFunc {
	var mu sync.Mutex
	items := make(map[int]docingest.DocumentStage)

	return func(ev docingest.StageEvent) {
		mu.Lock()
		defer mu.Unlock()

		if prev, ok := items[ev.Index]; ok && (prev == ev.Stage || prev.Terminal()) {
			return
		}
		items[ev.Index] = ev.Stage

		total := max(ev.Total, len(items))
		stages := make([]docingest.Stage, len(docingest.DocumentStages))
		for k := range docingest.DocumentStages {
			passed, current := 0, 0
			for _, s := range items {
				switch pos := stagePosition(s); {
				case pos > k:
					passed++
				case pos == k:
					current++
				}
			}

			st := docingest.Stage{Status: docingest.StagePending, Progress: passed * 100 / total}
			switch {
			case passed == total:
				st.Status = docingest.StageCompleted
			case current > 0 || passed > 0:
				st.Status = docingest.StageActive
			}
			stages[k] = st
		}

		_ = t.setStages(id, stages)
	}
}

// setStages overwrites stage status and progress by position, keeping
// the task's stage names. The task stays running until Complete or Fail
// settles it.
func (t *Tracker) setStages(id string, stages []docingest.Stage) error {
	return t.update(id, func(task *docingest.Task) error {
		for i := range task.Stages {
			if i >= len(stages) {
				break
			}
			task.Stages[i].Status = stages[i].Status
			task.Stages[i].Progress = clamp(stages[i].Progress)
		}
		task.Progress, task.Status = ComputeProgress(task.Stages)
		if task.Status == docingest.TaskCompleted {
			task.Status = docingest.TaskRunning
		}
		return nil
	})
}

// stagePosition orders document stages; terminal stages sort after all
// working stages.
func stagePosition(s docingest.DocumentStage) int {
	for i, ds := range docingest.DocumentStages {
		if ds == s {
			return i
		}
	}
	return len(docingest.DocumentStages)
}
