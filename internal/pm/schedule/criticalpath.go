package schedule

import (
	"sort"

	apperrors "github.com/hyvve/hyvve/internal/platform/errors"
)

// ErrDependencyCycle indicates the task dependency graph contains a cycle.
var ErrDependencyCycle = apperrors.New(apperrors.CodeScheduleDependencyCycle, "task dependencies form a cycle")

// CriticalPath is the longest chain of dependent tasks by cumulative estimate.
type CriticalPath struct {
	// TaskIDs lists the tasks on the path in execution order.
	TaskIDs []string
	// TotalDays is the cumulative estimate along the path.
	TotalDays float64
}

// ComputeCriticalPath finds the longest cumulative-estimate path through the
// task dependency graph. Dependencies on tasks outside the given set are
// ignored. Returns ErrDependencyCycle if the graph is not a DAG.
func ComputeCriticalPath(tasks []Task) (CriticalPath, error) {
	if len(tasks) == 0 {
		return CriticalPath{TaskIDs: []string{}}, nil
	}

	byID := make(map[string]Task, len(tasks))
	for _, task := range tasks {
		byID[task.ID] = task
	}

	// dependents[a] lists tasks that depend on a; indegree counts unmet
	// dependencies per task.
	dependents := make(map[string][]string, len(tasks))
	indegree := make(map[string]int, len(tasks))
	for _, task := range tasks {
		if _, ok := indegree[task.ID]; !ok {
			indegree[task.ID] = 0
		}
		for _, dep := range task.DependsOn {
			if _, ok := byID[dep]; !ok {
				continue
			}
			dependents[dep] = append(dependents[dep], task.ID)
			indegree[task.ID]++
		}
	}

	queue := make([]string, 0, len(tasks))
	for taskID, degree := range indegree {
		if degree == 0 {
			queue = append(queue, taskID)
		}
	}
	// Deterministic tie-breaking across equal-length paths.
	sort.Strings(queue)

	// dist holds the best cumulative estimate ending at each task; prev
	// records the predecessor on that best path.
	dist := make(map[string]float64, len(tasks))
	prev := make(map[string]string, len(tasks))
	for _, taskID := range queue {
		dist[taskID] = byID[taskID].EstimateDays
	}

	visited := 0
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		visited++

		next := dependents[current]
		sort.Strings(next)
		for _, taskID := range next {
			candidate := dist[current] + byID[taskID].EstimateDays
			if best, ok := dist[taskID]; !ok || candidate > best {
				dist[taskID] = candidate
				prev[taskID] = current
			}
			indegree[taskID]--
			if indegree[taskID] == 0 {
				queue = append(queue, taskID)
			}
		}
	}
	if visited != len(tasks) {
		return CriticalPath{}, ErrDependencyCycle
	}

	endID := ""
	endDist := -1.0
	ids := make([]string, 0, len(dist))
	for taskID := range dist {
		ids = append(ids, taskID)
	}
	sort.Strings(ids)
	for _, taskID := range ids {
		if dist[taskID] > endDist {
			endDist = dist[taskID]
			endID = taskID
		}
	}

	path := []string{}
	for taskID := endID; taskID != ""; {
		path = append(path, taskID)
		taskID = prev[taskID]
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}

	return CriticalPath{TaskIDs: path, TotalDays: endDist}, nil
}
