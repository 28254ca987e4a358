// Package planner maps an intent record onto a dependency-ordered plan of
// expert sub-tasks. Planning is a pure function: the same record always
// yields an equivalent plan (same task types and dependency edges).
package planner

import (
	"fmt"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
)

// TaskType selects the expert that executes a sub-task.
type TaskType string

const (
	TaskFindSpots       TaskType = "find_spots"
	TaskFindHotels      TaskType = "find_hotels"
	TaskFindFood        TaskType = "find_food"
	TaskCreateItinerary TaskType = "create_itinerary"
	TaskCalculateCost   TaskType = "calculate_cost"
	TaskGeneralInfo     TaskType = "general_info"
)

// Task is a unit of expert work.
type Task struct {
	ID string `json:"task_id"`

	Type TaskType `json:"task_type"`

	// Query is the reformulated query derived from the utterance and slots.
	Query string `json:"reformulated_query"`

	// Parameters are constructed fresh per turn; the dispatcher copies
	// them before injection so plans never share mutable state.
	Parameters map[string]any `json:"parameters,omitempty"`

	DependsOn []string `json:"depends_on,omitempty"`

	// Priority orders stages; lower runs first.
	Priority int `json:"priority"`

	Optional bool `json:"optional,omitempty"`
}

// Plan is the dependency-ordered execution plan for one turn.
type Plan struct {
	Tasks          []*Task  `json:"tasks"`
	ExecutionOrder []string `json:"execution_order"`
	Intent         string   `json:"intent"`
	Location       string   `json:"location"`
}

// Build maps the record's primary intent onto a fixed task skeleton.
func Build(rec *intent.Record) (*Plan, error) {
	plan := &Plan{Intent: rec.PrimaryIntent, Location: rec.Location}

	switch rec.PrimaryIntent {
	case intent.PlanTrip:
		buildPlanTrip(plan, rec)
	case intent.FindSpot, intent.MoreSpots:
		plan.Tasks = append(plan.Tasks, singleTask(TaskFindSpots, "spots_1", rec, 1))
	case intent.FindHotel, intent.MoreHotels:
		plan.Tasks = append(plan.Tasks, singleTask(TaskFindHotels, "hotel_1", rec, 1))
	case intent.FindFood, intent.MoreFood:
		plan.Tasks = append(plan.Tasks, singleTask(TaskFindFood, "food_1", rec, 1))
	case intent.CalculateCost:
		plan.Tasks = append(plan.Tasks, singleTask(TaskCalculateCost, "cost_1", rec, 1))
	default:
		plan.Tasks = append(plan.Tasks, singleTask(TaskGeneralInfo, "general_info_1", rec, 1))
	}

	// Sub-intents that survived flow control add their own stage-1 tasks.
	for _, sub := range rec.SubIntents {
		appendSubTask(plan, sub, rec)
	}

	order, err := TopoSort(plan.Tasks)
	if err != nil {
		return nil, err
	}
	plan.ExecutionOrder = order
	return plan, nil
}

// buildPlanTrip emits the full trip skeleton: parallel discovery at
// priority 1, itinerary at 2 depending on all three, cost at 3 when a
// budget is known.
func buildPlanTrip(plan *Plan, rec *intent.Record) {
	spots := singleTask(TaskFindSpots, "spots_1", rec, 1)
	food := singleTask(TaskFindFood, "food_1", rec, 1)
	plan.Tasks = append(plan.Tasks, spots, food)

	deps := []string{spots.ID, food.ID}
	if !skipAccommodation(rec) {
		hotels := singleTask(TaskFindHotels, "hotel_1", rec, 1)
		plan.Tasks = append(plan.Tasks, hotels)
		deps = append(deps, hotels.ID)
	}

	itinerary := singleTask(TaskCreateItinerary, "itinerary_1", rec, 2)
	itinerary.DependsOn = deps
	plan.Tasks = append(plan.Tasks, itinerary)

	if rec.Budget > 0 {
		cost := singleTask(TaskCalculateCost, "cost_1", rec, 3)
		cost.DependsOn = []string{itinerary.ID}
		cost.Optional = true
		plan.Tasks = append(plan.Tasks, cost)
	}
}

// skipAccommodation reports whether the user declined lodging, e.g.
// "không cần khách sạn".
func skipAccommodation(rec *intent.Record) bool {
	for _, kw := range rec.Keywords {
		switch strings.ToLower(kw) {
		case "không cần khách sạn", "không ở khách sạn", "no_accommodation":
			return true
		}
	}
	return false
}

func appendSubTask(plan *Plan, sub string, rec *intent.Record) {
	var taskType TaskType
	var prefix string
	switch sub {
	case intent.FindSpot:
		taskType, prefix = TaskFindSpots, "spots"
	case intent.FindHotel:
		taskType, prefix = TaskFindHotels, "hotel"
	case intent.FindFood:
		taskType, prefix = TaskFindFood, "food"
	case intent.GeneralQA:
		taskType, prefix = TaskGeneralInfo, "general_info"
	default:
		return
	}

	// Skip duplicates of tasks the skeleton already emitted.
	for _, t := range plan.Tasks {
		if t.Type == taskType {
			return
		}
	}
	id := fmt.Sprintf("%s_%d", prefix, len(plan.Tasks)+1)
	task := singleTask(taskType, id, rec, 1)
	task.Optional = true
	plan.Tasks = append(plan.Tasks, task)
}

func singleTask(taskType TaskType, id string, rec *intent.Record, priority int) *Task {
	return &Task{
		ID:         id,
		Type:       taskType,
		Query:      reformulate(taskType, rec),
		Parameters: baseParameters(rec),
		Priority:   priority,
	}
}

// baseParameters snapshots the record's slots into a fresh map.
func baseParameters(rec *intent.Record) map[string]any {
	params := map[string]any{}
	if rec.Location != "" {
		params["location"] = rec.Location
	}
	if rec.Duration > 0 {
		params["duration"] = rec.Duration
	}
	if rec.Budget > 0 {
		params["budget"] = rec.Budget
	}
	if rec.BudgetLevel != "" {
		params["budget_level"] = rec.BudgetLevel
	}
	if rec.PeopleCount > 0 {
		params["people_count"] = rec.PeopleCount
	}
	if len(rec.Interests) > 0 {
		params["interests"] = append([]string(nil), rec.Interests...)
	}
	if len(rec.Keywords) > 0 {
		params["keywords"] = append([]string(nil), rec.Keywords...)
	}
	return params
}

func reformulate(taskType TaskType, rec *intent.Record) string {
	var parts []string
	switch taskType {
	case TaskFindSpots:
		parts = append(parts, "địa điểm tham quan")
	case TaskFindHotels:
		parts = append(parts, "khách sạn")
	case TaskFindFood:
		parts = append(parts, "quán ăn ngon")
	case TaskCreateItinerary:
		parts = append(parts, "lịch trình du lịch")
	case TaskCalculateCost:
		parts = append(parts, "chi phí chuyến đi")
	case TaskGeneralInfo:
		parts = append(parts, strings.Join(rec.Keywords, " "))
	}
	if rec.Location != "" {
		parts = append(parts, rec.Location)
	}
	parts = append(parts, rec.Interests...)
	return strings.TrimSpace(strings.Join(parts, " "))
}
