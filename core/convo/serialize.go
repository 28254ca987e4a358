package convo

import (
	"encoding/json"
	"log/slog"
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

// knownFields lists the JSON keys owned by the Context schema. Anything
// else found during restore is preserved verbatim and re-emitted on
// serialize, so newer writers can round-trip through older readers.
var knownFields = buildKnownFields()

func buildKnownFields() map[string]bool {
	known := make(map[string]bool)
	t := reflect.TypeOf(Context{})
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		known[name] = true
	}
	return known
}

// contextAlias avoids recursing into Context's own marshal methods.
type contextAlias Context

// MarshalJSON serializes the context, merging preserved unknown fields
// back into the object. Known fields win on key collision.
func (c *Context) MarshalJSON() ([]byte, error) {
	base, err := json.Marshal((*contextAlias)(c))
	if err != nil {
		return nil, err
	}
	if len(c.extra) == 0 {
		return base, nil
	}

	var merged map[string]any
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for k, v := range c.extra {
		if _, owned := merged[k]; !owned {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}

// UnmarshalJSON restores the context and stashes unknown fields.
func (c *Context) UnmarshalJSON(data []byte) error {
	if err := json.Unmarshal(data, (*contextAlias)(c)); err != nil {
		return err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k := range raw {
		if !knownFields[k] {
			if c.extra == nil {
				c.extra = make(map[string]any)
			}
			c.extra[k] = raw[k]
		}
	}
	return nil
}

// Restore deserializes a context from its persisted form. An empty or
// unparsable payload yields a fresh context: the user's new utterance is
// still processed (restoration failure is never fatal to the turn).
func Restore(data []byte, sessionID string) *Context {
	if len(data) == 0 {
		return New(sessionID)
	}
	ctx := &Context{}
	if err := json.Unmarshal(data, ctx); err != nil {
		slog.Warn("convo: context restore failed, starting fresh",
			"session_id", sessionID,
			"error", err)
		return New(sessionID)
	}
	if ctx.SessionID == "" {
		ctx.SessionID = sessionID
	}
	if ctx.Workflow == "" {
		ctx.Workflow = StateInitial
	}
	return ctx
}

// Serialize produces the persisted form of the context.
func (c *Context) Serialize() (json.RawMessage, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return nil, errors.Wrap(err, "serialize context")
	}
	return data, nil
}

// Snapshot serializes the context, logging instead of failing; a turn's
// chunk emission never aborts on a snapshot problem.
func (c *Context) Snapshot() json.RawMessage {
	data, err := c.Serialize()
	if err != nil {
		slog.Error("convo: context snapshot failed", "session_id", c.SessionID, "error", err)
		return nil
	}
	return data
}
