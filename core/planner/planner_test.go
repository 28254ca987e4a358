package planner

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
)

func TestBuildPlanTrip(t *testing.T) {
	rec := &intent.Record{
		PrimaryIntent: intent.PlanTrip,
		Location:      "Đà Nẵng",
		Duration:      3,
		Budget:        5_000_000,
	}
	plan, err := Build(rec)
	require.NoError(t, err)

	types := map[TaskType]bool{}
	for _, task := range plan.Tasks {
		types[task.Type] = true
	}
	for _, want := range []TaskType{TaskFindSpots, TaskFindFood, TaskFindHotels, TaskCreateItinerary, TaskCalculateCost} {
		assert.True(t, types[want], "missing task %s", want)
	}

	itinerary := plan.Task("itinerary_1")
	require.NotNil(t, itinerary)
	assert.ElementsMatch(t, []string{"spots_1", "food_1", "hotel_1"}, itinerary.DependsOn)

	cost := plan.Task("cost_1")
	require.NotNil(t, cost)
	assert.Equal(t, []string{"itinerary_1"}, cost.DependsOn)

	// Discovery runs before itinerary, itinerary before cost.
	pos := map[string]int{}
	for i, id := range plan.ExecutionOrder {
		pos[id] = i
	}
	assert.Less(t, pos["spots_1"], pos["itinerary_1"])
	assert.Less(t, pos["food_1"], pos["itinerary_1"])
	assert.Less(t, pos["hotel_1"], pos["itinerary_1"])
	assert.Less(t, pos["itinerary_1"], pos["cost_1"])
}

func TestBuildPlanTripNoBudgetNoCost(t *testing.T) {
	plan, err := Build(&intent.Record{PrimaryIntent: intent.PlanTrip, Location: "Huế"})
	require.NoError(t, err)
	assert.Nil(t, plan.Task("cost_1"))
}

func TestBuildSingleIntentSkeletons(t *testing.T) {
	tests := []struct {
		primary  string
		wantType TaskType
	}{
		{intent.FindSpot, TaskFindSpots},
		{intent.MoreSpots, TaskFindSpots},
		{intent.FindHotel, TaskFindHotels},
		{intent.FindFood, TaskFindFood},
		{intent.CalculateCost, TaskCalculateCost},
		{intent.GeneralQA, TaskGeneralInfo},
		{intent.GetLocationTips, TaskGeneralInfo},
	}
	for _, tt := range tests {
		plan, err := Build(&intent.Record{PrimaryIntent: tt.primary, Location: "Hà Nội"})
		require.NoError(t, err)
		require.Len(t, plan.Tasks, 1, "intent %s", tt.primary)
		assert.Equal(t, tt.wantType, plan.Tasks[0].Type)
		assert.Empty(t, plan.Tasks[0].DependsOn)
	}
}

func TestBuildSubIntentsAddTasks(t *testing.T) {
	rec := &intent.Record{
		PrimaryIntent: intent.FindSpot,
		SubIntents:    []string{intent.FindFood, intent.FindSpot},
		Location:      "Đà Lạt",
	}
	plan, err := Build(rec)
	require.NoError(t, err)

	var foodTasks, spotTasks int
	for _, task := range plan.Tasks {
		switch task.Type {
		case TaskFindFood:
			foodTasks++
		case TaskFindSpots:
			spotTasks++
		}
	}
	assert.Equal(t, 1, foodTasks)
	assert.Equal(t, 1, spotTasks, "sub-intent duplicating the primary adds no task")
}

// Planning the same record twice yields equivalent plans.
func TestBuildDeterministic(t *testing.T) {
	rec := &intent.Record{
		PrimaryIntent: intent.PlanTrip,
		Location:      "Phú Quốc",
		Duration:      4,
		Budget:        10_000_000,
		Interests:     []string{"beach"},
	}
	a, err := Build(rec)
	require.NoError(t, err)
	b, err := Build(rec)
	require.NoError(t, err)

	require.Equal(t, a.ExecutionOrder, b.ExecutionOrder)
	require.Len(t, b.Tasks, len(a.Tasks))
	for i := range a.Tasks {
		assert.Equal(t, a.Tasks[i].ID, b.Tasks[i].ID)
		assert.Equal(t, a.Tasks[i].Type, b.Tasks[i].Type)
		assert.Equal(t, a.Tasks[i].DependsOn, b.Tasks[i].DependsOn)
		assert.True(t, reflect.DeepEqual(a.Tasks[i].Parameters, b.Tasks[i].Parameters))
	}

	// Parameter maps must not be shared between plans.
	a.Tasks[0].Parameters["location"] = "mutated"
	assert.NotEqual(t, "mutated", b.Tasks[0].Parameters["location"])
}

func TestTopoSortCycle(t *testing.T) {
	tasks := []*Task{
		{ID: "a", DependsOn: []string{"b"}},
		{ID: "b", DependsOn: []string{"a"}},
	}
	_, err := TopoSort(tasks)
	assert.Error(t, err)
}

func TestTopoSortUnknownDependency(t *testing.T) {
	_, err := TopoSort([]*Task{{ID: "a", DependsOn: []string{"ghost"}}})
	assert.Error(t, err)
}

func TestTopoSortTieBreak(t *testing.T) {
	tasks := []*Task{
		{ID: "z_low", Priority: 1},
		{ID: "a_high", Priority: 2},
		{ID: "b_low", Priority: 1},
	}
	order, err := TopoSort(tasks)
	require.NoError(t, err)
	assert.Equal(t, []string{"b_low", "z_low", "a_high"}, order)
}

func TestParallelGroups(t *testing.T) {
	plan, err := Build(&intent.Record{
		PrimaryIntent: intent.PlanTrip,
		Location:      "Nha Trang",
		Budget:        8_000_000,
	})
	require.NoError(t, err)

	groups := plan.ParallelGroups()
	require.Len(t, groups, 3)
	assert.Len(t, groups[0], 3, "discovery stage runs three tasks in parallel")
	assert.Equal(t, TaskCreateItinerary, groups[1][0].Type)
	assert.Equal(t, TaskCalculateCost, groups[2][0].Type)
}
