// Package orchestrator is the decision core's entry point. One turn runs:
// intent extraction, slot promotion, flow control, guards, either a special
// handler, the builder sub-dialog, or the planner/expert pipeline, and
// finally aggregation into response chunks.
package orchestrator

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/NhanTrannn/TravelGO-sub000/core/builder"
	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/expert"
	"github.com/NhanTrannn/TravelGO-sub000/core/intent"
	"github.com/NhanTrannn/TravelGO-sub000/core/llm"
	"github.com/NhanTrannn/TravelGO-sub000/core/verify"
	"github.com/NhanTrannn/TravelGO-sub000/core/workflow"
	"github.com/NhanTrannn/TravelGO-sub000/search"
	"github.com/NhanTrannn/TravelGO-sub000/store"
	"github.com/NhanTrannn/TravelGO-sub000/weather"
)

const (
	emptyTurnReply = "Mình chưa nhận được tin nhắn nào. Bạn thử gửi lại nhé."
	panicReply     = "Xin lỗi, có lỗi xảy ra khi xử lý yêu cầu. Bạn thử lại giúp mình nhé. 🙏"
	apologyReply   = "Xin lỗi, mình chưa tìm được thông tin phù hợp. Bạn thử hỏi cách khác xem sao nhé."
)

// Deps are the process-wide services injected at construction. Hybrid,
// LLM and Weather may be nil; the core degrades to store-backed and
// template paths.
type Deps struct {
	Docs    store.DocumentStore
	Hybrid  search.HybridSearch
	LLM     llm.Client
	Weather weather.Service
	Aliases *store.Aliases
}

// Orchestrator drives one conversation turn at a time. It holds no
// per-session state; the Context passed into each turn is the only thing
// it mutates.
type Orchestrator struct {
	extractor  *intent.Extractor
	dispatcher *expert.Dispatcher
	builder    *builder.Builder
	docs       store.DocumentStore
	llm        llm.Client
	weather    weather.Service
	aliases    *store.Aliases
}

// New wires the full decision core: extractor, expert registry, builder
// and verifier share the same service singletons.
func New(deps Deps) *Orchestrator {
	aliases := deps.Aliases
	if aliases == nil {
		aliases = store.NewAliases()
	}
	verifier := verify.New(deps.LLM)

	d := expert.NewDispatcher()
	d.Register(expert.NewSpotExpert(deps.Docs, deps.Hybrid, aliases))
	d.Register(expert.NewHotelExpert(deps.Docs, deps.Hybrid, deps.LLM, aliases))
	d.Register(expert.NewFoodExpert(deps.Docs, aliases))
	d.Register(expert.NewItineraryExpert(deps.LLM, deps.Weather))
	d.Register(expert.NewCostCalculator())
	d.Register(expert.NewGeneralInfoExpert(deps.Docs, deps.LLM, aliases))
	d.Register(expert.NewVerifierExpert(verifier))

	return &Orchestrator{
		extractor:  intent.NewExtractor(deps.LLM, aliases),
		dispatcher: d,
		builder:    builder.New(deps.Docs, deps.Weather, deps.LLM, verifier, aliases),
		docs:       deps.Docs,
		llm:        deps.LLM,
		weather:    deps.Weather,
		aliases:    aliases,
	}
}

// Turn runs one unary turn. It never returns an error: every failure path
// produces a chunk, and a panic yields a generic error chunk without
// mutating the context further.
func (o *Orchestrator) Turn(ctx context.Context, messages []convo.ChatMessage, c *convo.Context) *chunk.Chunk {
	start := time.Now()
	out := o.runTurn(ctx, messages, c)
	out.ExecutionTimeMs = time.Since(start).Milliseconds()
	return out
}

func (o *Orchestrator) runTurn(ctx context.Context, messages []convo.ChatMessage, c *convo.Context) (out *chunk.Chunk) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("orchestrator: panic recovered",
				"session_id", c.SessionID,
				"panic", r,
				"stack", string(debug.Stack()))
			out = chunk.Error(panicReply)
		}
	}()

	utterance := lastUserMessage(messages)
	if utterance == "" {
		return chunk.Error(emptyTurnReply)
	}
	c.AppendHistory("user", utterance)

	rec := o.extractor.Extract(ctx, utterance, c)
	promote(rec, c)

	out = o.route(ctx, rec, c, utterance)
	o.finish(out, rec, c)

	slog.Info("orchestrator: turn completed",
		"session_id", c.SessionID,
		"intent", rec.PrimaryIntent,
		"workflow_state", string(c.State()),
		"ui_type", string(out.UIType),
		"status", string(out.Status))
	return out
}

// route applies flow control and picks the execution path for the turn.
func (o *Orchestrator) route(ctx context.Context, rec *intent.Record, c *convo.Context, utterance string) *chunk.Chunk {
	decision := workflow.Apply(rec, c, utterance)
	if decision.RouteToBuilder {
		ch, err := o.builder.Continue(ctx, c, utterance)
		if err != nil {
			slog.Error("orchestrator: builder continuation failed",
				"session_id", c.SessionID, "error", err)
			return chunk.Error(apologyReply)
		}
		return ch
	}

	if v := workflow.Guard(rec, c); v != nil {
		var actions []map[string]any
		for _, a := range v.Actions {
			actions = append(actions, map[string]any{"label": a, "action": a})
		}
		return chunk.Blocked(v.Message, actions)
	}

	if ch := o.handleSpecial(ctx, rec, c, utterance); ch != nil {
		return ch
	}
	return o.executePlanned(ctx, rec, c, utterance)
}

// finish stamps the terminal chunk with the metadata envelope, the context
// snapshot, and mirrors the reply into chat history.
func (o *Orchestrator) finish(out *chunk.Chunk, rec *intent.Record, c *convo.Context) {
	if out.Metadata == nil {
		out.Metadata = buildMetadata(rec, c)
	}
	c.LastIntent = rec.PrimaryIntent
	c.UpdatedAt = time.Now()
	if out.Reply != "" {
		c.AppendHistory("assistant", out.Reply)
	}
	out.Context = c.Snapshot()
}

// promote merges extracted slots into the context. Fresh destination and
// duration override; the remaining slots only fill gaps (MergeContext has
// already inherited, so equal writes are no-ops).
func promote(rec *intent.Record, c *convo.Context) {
	if rec.Location != "" {
		c.Destination = rec.Location
	}
	if rec.Duration > 0 {
		c.Duration = rec.Duration
	}
	if rec.Budget > 0 {
		c.Budget = rec.Budget
	}
	if rec.BudgetLevel != "" {
		c.BudgetLevel = rec.BudgetLevel
	}
	if rec.PeopleCount > 0 {
		c.PeopleCount = rec.PeopleCount
	}
	if rec.CompanionType != "" {
		c.CompanionType = rec.CompanionType
	}
	if len(rec.Interests) > 0 {
		c.Interests = rec.Interests
	}
}

func buildMetadata(rec *intent.Record, c *convo.Context) *chunk.Metadata {
	return &chunk.Metadata{
		Intent:     rec.PrimaryIntent,
		SubIntents: rec.SubIntents,
		Entities: chunk.Entities{
			Destination:   c.Destination,
			Duration:      c.Duration,
			PeopleCount:   c.PeopleCount,
			Budget:        c.Budget,
			BudgetLevel:   c.BudgetLevel,
			Interests:     c.Interests,
			CompanionType: c.CompanionType,
		},
		Confidence:      rec.Confidence,
		WorkflowState:   string(c.State()),
		FlowAction:      rec.FlowAction,
		ContextRelation: rec.ContextRelation,
	}
}

func lastUserMessage(messages []convo.ChatMessage) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == "user" && messages[i].Content != "" {
			return messages[i].Content
		}
	}
	return ""
}
