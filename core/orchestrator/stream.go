package orchestrator

import (
	"context"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/core/planner"
	"github.com/NhanTrannn/TravelGO-sub000/core/workflow"
)

// Stream runs one streaming turn. Chunks arrive in stage order; the channel
// is closed after the terminal chunk. The producer owns the context for the
// duration of the turn and attaches a snapshot to every chunk.
func (o *Orchestrator) Stream(ctx context.Context, messages []convo.ChatMessage, c *convo.Context) <-chan *chunk.Chunk {
	out := make(chan *chunk.Chunk)
	go func() {
		defer close(out)
		defer func() {
			if r := recover(); r != nil {
				slog.Error("orchestrator: streaming panic recovered",
					"session_id", c.SessionID,
					"panic", r,
					"stack", string(debug.Stack()))
				select {
				case out <- chunk.Error(panicReply):
				case <-ctx.Done():
				}
			}
		}()
		o.stream(ctx, messages, c, out)
	}()
	return out
}

func (o *Orchestrator) stream(ctx context.Context, messages []convo.ChatMessage, c *convo.Context, out chan<- *chunk.Chunk) {
	start := time.Now()
	send := func(ch *chunk.Chunk) bool {
		if ctx.Err() != nil {
			return false
		}
		ch.ExecutionTimeMs = time.Since(start).Milliseconds()
		select {
		case out <- ch:
			return true
		case <-ctx.Done():
			return false
		}
	}

	utterance := lastUserMessage(messages)
	if utterance == "" {
		send(chunk.Error(emptyTurnReply))
		return
	}
	c.AppendHistory("user", utterance)

	rec := o.extractor.Extract(ctx, utterance, c)
	promote(rec, c)

	// Builder, guard and special-handler paths produce one terminal chunk.
	decision := workflow.Apply(rec, c, utterance)
	if decision.RouteToBuilder {
		ch, err := o.builder.Continue(ctx, c, utterance)
		if err != nil {
			ch = chunk.Error(apologyReply)
		}
		o.finish(ch, rec, c)
		send(ch)
		return
	}
	if v := workflow.Guard(rec, c); v != nil {
		var actions []map[string]any
		for _, a := range v.Actions {
			actions = append(actions, map[string]any{"label": a, "action": a})
		}
		ch := chunk.Blocked(v.Message, actions)
		o.finish(ch, rec, c)
		send(ch)
		return
	}
	if ch := o.handleSpecial(ctx, rec, c, utterance); ch != nil {
		o.finish(ch, rec, c)
		send(ch)
		return
	}

	plan, err := planner.Build(rec)
	if err != nil {
		slog.Error("orchestrator: planning failed",
			"session_id", c.SessionID, "error", err)
		ch := chunk.Error(apologyReply)
		o.finish(ch, rec, c)
		send(ch)
		return
	}
	attachOriginalQuery(plan, utterance)
	attachBudgetPhrase(plan, rec, utterance)

	priorityBreak := false
	switch c.State() {
	case convo.StateInitial, convo.StateChoosingSpots, convo.StateChoosingHotel:
		priorityBreak = true
	}

	var replies []string
	outcomes := o.executeStages(ctx, plan, rec, c, priorityBreak, func(oc *stageOutcome) bool {
		if oc.Section == nil {
			return ctx.Err() == nil
		}
		p := chunk.Partial(oc.Section.Reply, oc.Section.UIType, oc.Section.UIData)
		p.Metadata = buildMetadata(rec, c)
		p.Context = c.Snapshot()
		replies = append(replies, oc.Section.Reply)
		return send(p)
	})
	if ctx.Err() != nil {
		// Cancelled turns emit nothing further.
		return
	}

	final := chunk.Complete("", chunk.UINone, nil)
	if len(replies) == 0 {
		final.Reply = apologyReply
		final.UIType = chunk.UIText
	} else {
		if ask := disclosureFollowUp(rec, c); ask != "" {
			final.Reply = ask
			final.UIType = chunk.UIText
			replies = append(replies, ask)
		}
		c.AppendHistory("assistant", strings.Join(replies, "\n\n"))
	}
	final.Metadata = buildMetadata(rec, c)
	if chosen := rerankIntent(rec, outcomes); chosen != rec.PrimaryIntent {
		final.Metadata.Intent = chosen
	}
	c.LastIntent = rec.PrimaryIntent
	c.UpdatedAt = time.Now()
	final.Context = c.Snapshot()
	send(final)
}
