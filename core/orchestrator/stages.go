package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/NhanTrannn/TravelGO-sub000/core/aggregate"
	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/expert"
	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
)

// stageOutcome captures one executed pipeline stage: its raw results, the
// formatted section (nil when nothing displayable) and the quality score
// used for re-ranking.
type stageOutcome struct {
	Stage   string
	Results []*expert.Result
	Section *aggregate.Section
	Quality float64
}

// executePlanned runs the planner/expert pipeline for one unary turn.
func (o *Orchestrator) executePlanned(ctx context.Context, rec *intent.Record, c *convo.Context, utterance string) *chunk.Chunk {
	plan, err := planner.Build(rec)
	if err != nil {
		slog.Error("orchestrator: planning failed",
			"session_id", c.SessionID,
			"intent", rec.PrimaryIntent,
			"error", err)
		return chunk.Error(apologyReply)
	}
	attachOriginalQuery(plan, utterance)
	attachBudgetPhrase(plan, rec, utterance)

	outcomes := o.executeStages(ctx, plan, rec, c, false, nil)

	var sections []*aggregate.Section
	anySuccess := false
	for _, oc := range outcomes {
		if oc.Section != nil {
			sections = append(sections, oc.Section)
		}
		for _, r := range oc.Results {
			if r.Success {
				anySuccess = true
			}
		}
	}
	if !anySuccess || len(sections) == 0 {
		// Experts failed or found nothing; the context is retained.
		return chunk.Complete(apologyReply, chunk.UIText, nil)
	}

	header := ""
	if len(sections) > 1 {
		header = assembleHeader(c)
	}
	reply, uiType, data := aggregate.Assemble(sections, header)
	text := *reply
	if ask := disclosureFollowUp(rec, c); ask != "" {
		text += "\n\n" + ask
	}
	out := chunk.Complete(text, uiType, data)

	out.Metadata = buildMetadata(rec, c)
	if chosen := rerankIntent(rec, outcomes); chosen != rec.PrimaryIntent {
		slog.Debug("orchestrator: intent re-ranked",
			"session_id", c.SessionID,
			"from", rec.PrimaryIntent,
			"to", chosen)
		out.Metadata.Intent = chosen
	}
	return out
}

// attachOriginalQuery gives the general-info tasks the raw utterance, so
// "where is X" patterns survive query reformulation.
func attachOriginalQuery(plan *planner.Plan, utterance string) {
	for _, t := range plan.Tasks {
		if t.Type == planner.TaskGeneralInfo {
			t.Parameters["original_query"] = utterance
		}
	}
}

// attachBudgetPhrase hands hotel tasks the raw utterance when no structured
// budget slot was extracted, so price phrasing the slot patterns missed can
// still narrow the search via the budget-phrase parser.
func attachBudgetPhrase(plan *planner.Plan, rec *intent.Record, utterance string) {
	if rec.Budget > 0 || rec.BudgetLevel != "" {
		return
	}
	for _, t := range plan.Tasks {
		if t.Type == planner.TaskFindHotels {
			t.Parameters["budget_phrase"] = utterance
		}
	}
}

// executeStages runs the plan level by level: each parallel group fans out
// concurrently, and its results are formed into sections in the fixed
// pipeline order. Outputs accumulate into the prior map for dependency
// injection into later levels. The emit callback (may be nil) receives
// every outcome; returning false stops scheduling. With priorityBreak set,
// execution halts after the first stage that yields a displayable section.
// Turns that ran to completion with hotel results but no cost task get a
// synthesized cost estimate appended.
func (o *Orchestrator) executeStages(ctx context.Context, plan *planner.Plan, rec *intent.Record, c *convo.Context, priorityBreak bool, emit func(*stageOutcome) bool) []*stageOutcome {
	primaryStage := stageForIntent(rec.PrimaryIntent)
	allowed := allowedStages(c.State())

	prior := make(map[string]*expert.Result)
	var outcomes []*stageOutcome
	halted := false

levels:
	for _, group := range plan.ParallelGroups() {
		if ctx.Err() != nil {
			halted = true
			break
		}

		// The primary intent's stage always runs; only greedy sub-intent
		// stages are dropped.
		var runnable []*planner.Task
		for _, t := range group {
			stage := stageOf(t.ID)
			if allowed != nil && !allowed[stage] && stage != primaryStage {
				slog.Debug("orchestrator: stage dropped by flow control",
					"stage", stage,
					"workflow_state", string(c.State()))
				continue
			}
			runnable = append(runnable, t)
		}
		if len(runnable) == 0 {
			continue
		}

		results := o.dispatcher.ExecuteStage(ctx, runnable, prior, c)
		for id, r := range results {
			prior[id] = r
		}

		for _, stage := range aggregate.StageOrder {
			tasks := tasksForStage(runnable, stage)
			if len(tasks) == 0 {
				continue
			}
			ordered := orderedResults(tasks, results)
			if stage == aggregate.StageItinerary {
				o.verifyItineraries(ctx, c, ordered)
			}

			outcome := &stageOutcome{
				Stage:   stage,
				Results: ordered,
				Section: aggregate.FormatStage(stage, ordered),
				Quality: stageQuality(stage, ordered),
			}
			outcomes = append(outcomes, outcome)
			mergeCaches(c, stage, ordered)

			if emit != nil && !emit(outcome) {
				halted = true
				break levels
			}
			if priorityBreak && outcome.Section != nil {
				halted = true
				break levels
			}
		}
	}

	if !halted {
		if cost := synthesizeCostOutcome(outcomes, c); cost != nil {
			outcomes = append(outcomes, cost)
			if emit != nil {
				emit(cost)
			}
		}
	}
	return outcomes
}

// tasksForStage filters a parallel group down to one pipeline stage.
func tasksForStage(tasks []*planner.Task, stage string) []*planner.Task {
	var out []*planner.Task
	for _, t := range tasks {
		if stageOf(t.ID) == stage {
			out = append(out, t)
		}
	}
	return out
}

// synthesizeCostOutcome estimates trip costs for multi-section turns where
// hotels came back but no cost task ran. Single-section turns keep their
// focused reply.
func synthesizeCostOutcome(outcomes []*stageOutcome, c *convo.Context) *stageOutcome {
	sections := 0
	var hotels []map[string]any
	for _, oc := range outcomes {
		if oc.Section != nil {
			sections++
		}
		switch oc.Stage {
		case aggregate.StageCost:
			if oc.Quality > 0 {
				return nil
			}
		case aggregate.StageHotels:
			for _, r := range oc.Results {
				if r.Success {
					hotels = append(hotels, r.Data...)
				}
			}
		}
	}
	if sections < 2 || len(hotels) == 0 {
		return nil
	}

	record := aggregate.SynthesizeCost(hotels, c.Duration, c.PeopleCount, c.BudgetLevel)
	results := []*expert.Result{{Success: true, Data: []map[string]any{record}}}
	return &stageOutcome{
		Stage:   aggregate.StageCost,
		Results: results,
		Section: aggregate.FormatStage(aggregate.StageCost, results),
		Quality: stageQuality(aggregate.StageCost, results),
	}
}

// disclosureLabels names the discovery intents a follow-up question can
// reference.
var disclosureLabels = map[string]string{
	intent.FindSpot:   "địa điểm tham quan",
	intent.MoreSpots:  "địa điểm tham quan",
	intent.FindHotel:  "khách sạn",
	intent.MoreHotels: "khách sạn",
	intent.FindFood:   "quán ăn",
	intent.MoreFood:   "quán ăn",
}

// disclosureFollowUp builds the deferred question for the requested sections
// that came back empty, so multi-intent turns acknowledge what is still open.
// Empty when everything asked for was answered.
func disclosureFollowUp(rec *intent.Record, c *convo.Context) string {
	requested := append([]string{rec.PrimaryIntent}, rec.SubIntents...)
	d := convo.NewMemory(c).Partition(requested)
	if len(d.AnsweredSections) == 0 {
		return ""
	}

	var missing []string
	seen := map[string]bool{}
	for _, label := range d.UnansweredIntents {
		name := disclosureLabels[label]
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		missing = append(missing, name)
	}
	if len(missing) == 0 {
		return ""
	}
	return fmt.Sprintf("Mình chưa tìm được %s ưng ý ở đây. Bạn muốn mình thử tiêu chí khác không?",
		strings.Join(missing, " và "))
}

// verifyItineraries runs the verifier over every generated itinerary and
// swaps in the auto-fixed plan when activities had to move.
func (o *Orchestrator) verifyItineraries(ctx context.Context, c *convo.Context, results []*expert.Result) {
	for _, r := range results {
		if !r.Success {
			continue
		}
		for i, record := range r.Data {
			if record["days"] == nil {
				continue
			}
			task := &planner.Task{
				ID:   "verify_1",
				Type: expert.TaskVerifyItinerary,
				Parameters: map[string]any{
					"itinerary_data": []map[string]any{record},
				},
			}
			vres := o.dispatcher.Execute(ctx, task, nil, c)
			if !vres.Success || len(vres.Data) == 0 {
				continue
			}
			fixed, _ := vres.Metadata["fixed"].(bool)
			verdict, _ := vres.Metadata["verdict"].(string)
			if !fixed {
				record["verification"] = map[string]any{"verdict": verdict}
				continue
			}
			if fixedIt, ok := vres.Data[0]["itinerary"].(map[string]any); ok {
				r.Data[i] = adjustedItineraryRecord(record, fixedIt, verdict)
			}
		}
	}
}

// adjustedItineraryRecord rebuilds the display record around the verifier's
// repaired day layout.
func adjustedItineraryRecord(original, fixed map[string]any, verdict string) map[string]any {
	out := make(map[string]any, len(original)+2)
	for k, v := range original {
		out[k] = v
	}
	var days []map[string]any
	for _, dayRaw := range toAnySlice(fixed["days"]) {
		day, ok := dayRaw.(map[string]any)
		if !ok {
			continue
		}
		entries := toAnySlice(day["spots"])
		if len(entries) == 0 {
			entries = toAnySlice(day["activities"])
		}
		days = append(days, map[string]any{
			"day":        day["day"],
			"title":      day["title"],
			"activities": entries,
		})
	}
	if len(days) > 0 {
		out["days"] = days
	}
	out["auto_adjusted"] = true
	out["verification"] = map[string]any{"verdict": verdict, "fixed": true}
	return out
}

// mergeCaches promotes stage outputs into the context's recent-result
// caches. The caches only grow within a turn; failures never clear them.
func mergeCaches(c *convo.Context, stage string, results []*expert.Result) {
	var records []map[string]any
	for _, r := range results {
		if r.Success {
			records = append(records, r.Data...)
		}
	}
	if len(records) == 0 {
		return
	}
	switch stage {
	case aggregate.StageSpots:
		c.CacheSpots(records)
		c.MarkAnswered(intent.FindSpot)
	case aggregate.StageHotels:
		c.CacheHotels(records)
		c.MarkAnswered(intent.FindHotel)
	case aggregate.StageFood:
		c.CacheFoods(records)
		c.MarkAnswered(intent.FindFood)
	case aggregate.StageItinerary:
		persistItinerary(c, records)
	}
}

// persistItinerary mirrors a generated itinerary record into the context so
// show_itinerary and backtracking work after a plan-path turn.
func persistItinerary(c *convo.Context, records []map[string]any) {
	for _, r := range records {
		if r["days"] == nil {
			continue
		}
		it := &convo.Itinerary{Location: stringField(r, "location")}
		if d, ok := intValue(r["duration"]); ok {
			it.Duration = d
		}
		it.StartDate = stringField(r, "start_date")
		for _, dayRaw := range toAnySlice(r["days"]) {
			day, ok := dayRaw.(map[string]any)
			if !ok {
				continue
			}
			entry := convo.ItineraryDay{Title: stringField(day, "title")}
			if n, ok := intValue(day["day"]); ok {
				entry.Day = n
			}
			entries := toAnySlice(day["activities"])
			if len(entries) == 0 {
				entries = toAnySlice(day["spots"])
			}
			for _, spotRaw := range entries {
				if spot, ok := spotRaw.(map[string]any); ok {
					entry.Spots = append(entry.Spots, spot)
				}
			}
			it.Days = append(it.Days, entry)
		}
		if len(it.Days) > 0 {
			c.LastItinerary = it
			return
		}
	}
}

// stageOf maps a task id prefix onto its pipeline stage.
func stageOf(taskID string) string {
	switch {
	case strings.HasPrefix(taskID, "spots"):
		return aggregate.StageSpots
	case strings.HasPrefix(taskID, "hotel"):
		return aggregate.StageHotels
	case strings.HasPrefix(taskID, "food"):
		return aggregate.StageFood
	case strings.HasPrefix(taskID, "itinerary"):
		return aggregate.StageItinerary
	case strings.HasPrefix(taskID, "cost"):
		return aggregate.StageCost
	default:
		return aggregate.StageDiscovery
	}
}

// allowedStages is the flow-control stage filter. Nil means every stage
// may run in the current state.
func allowedStages(state convo.WorkflowState) map[string]bool {
	switch state {
	case convo.StateChoosingSpots:
		return map[string]bool{
			aggregate.StageDiscovery: true,
			aggregate.StageSpots:     true,
		}
	case convo.StateChoosingHotel:
		return map[string]bool{
			aggregate.StageDiscovery: true,
			aggregate.StageHotels:    true,
			aggregate.StageFood:      true,
			aggregate.StageCost:      true,
		}
	}
	return nil
}

func stageForIntent(label string) string {
	switch label {
	case intent.FindSpot, intent.MoreSpots:
		return aggregate.StageSpots
	case intent.FindHotel, intent.MoreHotels:
		return aggregate.StageHotels
	case intent.FindFood, intent.MoreFood:
		return aggregate.StageFood
	case intent.PlanTrip:
		return aggregate.StageItinerary
	case intent.CalculateCost:
		return aggregate.StageCost
	default:
		return aggregate.StageDiscovery
	}
}

func stageIntent(stage string) string {
	switch stage {
	case aggregate.StageSpots:
		return intent.FindSpot
	case aggregate.StageHotels:
		return intent.FindHotel
	case aggregate.StageFood:
		return intent.FindFood
	case aggregate.StageItinerary:
		return intent.PlanTrip
	case aggregate.StageCost:
		return intent.CalculateCost
	default:
		return intent.GeneralQA
	}
}

// stageQuality scores a stage's results for re-ranking. Zero means nothing
// usable came back.
func stageQuality(stage string, results []*expert.Result) float64 {
	var records []map[string]any
	success := false
	for _, r := range results {
		if r.Success {
			success = true
			records = append(records, r.Data...)
		}
	}
	if !success {
		return 0
	}

	switch stage {
	case aggregate.StageSpots:
		q := min(float64(len(records))/10, 1)
		if enrichedShare(records, "description", "rating") >= 0.5 {
			q += 0.2
		}
		return q
	case aggregate.StageHotels:
		q := min(float64(len(records))/8, 1)
		if enrichedShare(records, "price", "rating") >= 0.5 {
			q += 0.2
		}
		return q
	case aggregate.StageFood:
		return min(float64(len(records))/5, 1)
	case aggregate.StageItinerary:
		days := 0
		for _, r := range records {
			for _, dayRaw := range toAnySlice(r["days"]) {
				if day, ok := dayRaw.(map[string]any); ok {
					if len(toAnySlice(day["activities"]))+len(toAnySlice(day["spots"])) > 0 {
						days++
					}
				}
			}
		}
		return min(float64(days)/3, 1) + 0.3
	case aggregate.StageCost:
		for _, r := range records {
			if r["total"] != nil {
				return 0.8
			}
		}
		return 0
	}
	if len(records) > 0 {
		return 0.5
	}
	return 0.3
}

// rerankIntent lets a clearly better non-primary stage take over the
// metadata intent when the primary stage came back weak.
func rerankIntent(rec *intent.Record, outcomes []*stageOutcome) string {
	primaryStage := stageForIntent(rec.PrimaryIntent)
	var primaryQuality float64
	var best *stageOutcome
	for _, oc := range outcomes {
		if oc.Stage == primaryStage {
			primaryQuality = oc.Quality
			continue
		}
		if oc.Section == nil {
			continue
		}
		if best == nil || oc.Quality > best.Quality {
			best = oc
		}
	}
	if best != nil && best.Quality > 0.7 &&
		(primaryQuality < 0.2 || best.Quality-primaryQuality > 0.4) {
		return stageIntent(best.Stage)
	}
	return rec.PrimaryIntent
}

func enrichedShare(records []map[string]any, fields ...string) float64 {
	if len(records) == 0 {
		return 0
	}
	enriched := 0
	for _, r := range records {
		ok := true
		for _, f := range fields {
			switch v := r[f].(type) {
			case nil:
				ok = false
			case string:
				if v == "" {
					ok = false
				}
			}
		}
		if ok {
			enriched++
		}
	}
	return float64(enriched) / float64(len(records))
}

func orderedResults(tasks []*planner.Task, results map[string]*expert.Result) []*expert.Result {
	out := make([]*expert.Result, 0, len(tasks))
	for _, t := range tasks {
		if r, ok := results[t.ID]; ok {
			out = append(out, r)
		}
	}
	return out
}

func assembleHeader(c *convo.Context) string {
	if c.Destination != "" {
		return fmt.Sprintf("Đây là gợi ý của mình cho chuyến đi %s:", c.Destination)
	}
	return "Đây là gợi ý của mình cho chuyến đi của bạn:"
}

func toAnySlice(v any) []any {
	switch s := v.(type) {
	case []any:
		return s
	case []map[string]any:
		out := make([]any, len(s))
		for i, m := range s {
			out[i] = m
		}
		return out
	}
	return nil
}

func stringField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
