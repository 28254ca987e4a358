// Package expert contains the single-task workers (spots, hotels, food,
// itinerary, cost, general info, verification) and the dispatcher that
// routes planned tasks to them with dependency injection and panic
// isolation.
package expert

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
)

// Result is the uniform envelope every expert returns.
type Result struct {
	ExpertType      string           `json:"expert_type"`
	Success         bool             `json:"success"`
	Data            []map[string]any `json:"data,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	Error           string           `json:"error,omitempty"`
	ExecutionTimeMs int64            `json:"execution_time_ms"`
	Metadata        map[string]any   `json:"metadata,omitempty"`
}

// Failure builds a failed envelope.
func Failure(expertType, msg string) *Result {
	return &Result{ExpertType: expertType, Error: msg}
}

// Expert executes one task type against external services.
type Expert interface {
	Type() planner.TaskType
	Execute(ctx context.Context, query string, params map[string]any, c *convo.Context) (*Result, error)
}

// Dispatcher routes tasks to registered experts.
type Dispatcher struct {
	mu      sync.RWMutex
	experts map[planner.TaskType]Expert

	// MaxParallel bounds concurrent experts within one stage.
	MaxParallel int
}

// NewDispatcher builds an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		experts:     make(map[planner.TaskType]Expert),
		MaxParallel: 4,
	}
}

// Register adds an expert for its task type.
func (d *Dispatcher) Register(e Expert) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.experts[e.Type()] = e
}

// Execute runs one task. Prior results are injected into a copy of the
// task's parameters under spots_data/hotel_data/food_data/itinerary_data
// keys according to the task's dependencies. A panicking expert yields a
// failure envelope, never a crash.
func (d *Dispatcher) Execute(ctx context.Context, task *planner.Task, prior map[string]*Result, c *convo.Context) *Result {
	d.mu.RLock()
	e, ok := d.experts[task.Type]
	d.mu.RUnlock()
	if !ok {
		return Failure(string(task.Type), fmt.Sprintf("no expert registered for %s", task.Type))
	}

	params := copyParams(task.Parameters)
	injectDependencies(params, task, prior)

	start := time.Now()
	result := d.run(ctx, e, task, params, c)
	result.ExpertType = string(task.Type)
	result.ExecutionTimeMs = time.Since(start).Milliseconds()

	if result.Success {
		slog.Debug("expert: task completed",
			"task_id", task.ID,
			"type", task.Type,
			"records", len(result.Data),
			"duration_ms", result.ExecutionTimeMs)
	} else {
		slog.Warn("expert: task failed",
			"task_id", task.ID,
			"type", task.Type,
			"error", result.Error)
	}
	return result
}

func (d *Dispatcher) run(ctx context.Context, e Expert, task *planner.Task, params map[string]any, c *convo.Context) (result *Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("expert: panic recovered",
				"task_id", task.ID,
				"panic", r,
				"stack", string(debug.Stack()))
			result = Failure(string(task.Type), fmt.Sprintf("panic: %v", r))
		}
	}()

	result, err := e.Execute(ctx, task.Query, params, c)
	if err != nil {
		return Failure(string(task.Type), err.Error())
	}
	if result == nil {
		return Failure(string(task.Type), "expert returned no result")
	}
	result.Success = result.Error == ""
	return result
}

// ExecuteStage runs the stage's tasks concurrently, bounded by MaxParallel.
// It always returns a result per task; failures are envelopes, not errors.
func (d *Dispatcher) ExecuteStage(ctx context.Context, tasks []*planner.Task, prior map[string]*Result, c *convo.Context) map[string]*Result {
	results := make(map[string]*Result, len(tasks))
	if len(tasks) == 0 {
		return results
	}
	if len(tasks) == 1 {
		results[tasks[0].ID] = d.Execute(ctx, tasks[0], prior, c)
		return results
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(d.MaxParallel)
	for _, task := range tasks {
		task := task
		g.Go(func() error {
			r := d.Execute(ctx, task, prior, c)
			mu.Lock()
			results[task.ID] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// injectDependencies copies dependency outputs into the parameter map so
// downstream experts see upstream data without shared mutable state.
func injectDependencies(params map[string]any, task *planner.Task, prior map[string]*Result) {
	for _, dep := range task.DependsOn {
		r, ok := prior[dep]
		if !ok || !r.Success || len(r.Data) == 0 {
			continue
		}
		switch {
		case strings.HasPrefix(dep, "spots"):
			params["spots_data"] = r.Data
		case strings.HasPrefix(dep, "hotel"):
			params["hotel_data"] = r.Data
		case strings.HasPrefix(dep, "food"):
			params["food_data"] = r.Data
		case strings.HasPrefix(dep, "itinerary"):
			params["itinerary_data"] = r.Data
		}
	}
}

func copyParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// toRecord flattens a typed store record into the map shape the UI and
// downstream experts consume.
func toRecord(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func toRecords[T any](items []T) []map[string]any {
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m := toRecord(item); m != nil {
			out = append(out, m)
		}
	}
	return out
}

// Param helpers: planner parameters survive JSON round trips, so numbers
// may arrive as float64.

func paramString(params map[string]any, key string) string {
	if s, ok := params[key].(string); ok {
		return s
	}
	return ""
}

func paramInt(params map[string]any, key string) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func paramInt64(params map[string]any, key string) int64 {
	switch v := params[key].(type) {
	case int:
		return int64(v)
	case int64:
		return v
	case float64:
		return int64(v)
	}
	return 0
}

func paramStrings(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		var out []string
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func paramRecords(params map[string]any, key string) []map[string]any {
	switch v := params[key].(type) {
	case []map[string]any:
		return v
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}
