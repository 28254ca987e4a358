package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/lithammer/shortuuid/v4"
	"github.com/pkg/errors"

	"github.com/NhanTrannn/TravelGO-sub000/core/chunk"
	"github.com/NhanTrannn/TravelGO-sub000/core/convo"
	"github.com/NhanTrannn/TravelGO-sub000/store/sessiondb"
)

// ChatRequest is the turn request body. Message is a convenience for
// single-utterance clients; Messages wins when both are set.
type ChatRequest struct {
	SessionID string              `json:"session_id,omitempty"`
	Message   string              `json:"message,omitempty"`
	Messages  []convo.ChatMessage `json:"messages,omitempty"`
}

// ChatResponse wraps the terminal chunk with session identifiers.
type ChatResponse struct {
	SessionID string `json:"session_id"`
	TraceID   string `json:"trace_id"`
	*chunk.Chunk
}

func (r *ChatRequest) normalize() (string, []convo.ChatMessage) {
	sessionID := r.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	messages := r.Messages
	if len(messages) == 0 && r.Message != "" {
		messages = []convo.ChatMessage{{Role: "user", Content: r.Message}}
	}
	return sessionID, messages
}

func (s *Server) handleChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	sessionID, messages := req.normalize()
	traceID := shortuuid.New()
	start := time.Now()

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx := c.Request().Context()
	convoCtx := s.loadContext(ctx, sessionID, traceID)
	out := s.orch.Turn(ctx, messages, convoCtx)
	s.saveContext(ctx, sessionID, traceID, out)

	s.metrics.RecordTurn(chunkIntent(out), string(out.Status), "unary", time.Since(start))
	slog.Info("server: turn served",
		"session_id", sessionID,
		"trace_id", traceID,
		"intent", chunkIntent(out),
		"status", string(out.Status),
		"duration_ms", time.Since(start).Milliseconds())

	return c.JSON(http.StatusOK, ChatResponse{SessionID: sessionID, TraceID: traceID, Chunk: out})
}

func (s *Server) handleChatStream(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"message": "invalid request body"})
	}
	sessionID, messages := req.normalize()
	traceID := shortuuid.New()
	start := time.Now()

	lock := s.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.Header().Set("X-Session-Id", sessionID)
	resp.WriteHeader(http.StatusOK)

	s.metrics.StreamStarted()
	defer s.metrics.StreamEnded()

	ctx := c.Request().Context()
	convoCtx := s.loadContext(ctx, sessionID, traceID)

	var last *chunk.Chunk
	for ch := range s.orch.Stream(ctx, messages, convoCtx) {
		if err := writeSSE(resp, sessionID, traceID, ch); err != nil {
			slog.Warn("server: stream write failed",
				"session_id", sessionID, "trace_id", traceID, "error", err)
			break
		}
		last = ch
	}

	if last != nil {
		s.saveContext(ctx, sessionID, traceID, last)
		s.metrics.RecordTurn(chunkIntent(last), string(last.Status), "stream", time.Since(start))
	}
	return nil
}

func writeSSE(resp *echo.Response, sessionID, traceID string, ch *chunk.Chunk) error {
	payload, err := json.Marshal(ChatResponse{SessionID: sessionID, TraceID: traceID, Chunk: ch})
	if err != nil {
		return errors.Wrap(err, "marshal chunk")
	}
	if _, err := fmt.Fprintf(resp, "data: %s\n\n", payload); err != nil {
		return errors.Wrap(err, "write chunk")
	}
	resp.Flush()
	return nil
}

// loadContext restores the session context; a store failure starts fresh so
// the turn still runs.
func (s *Server) loadContext(ctx context.Context, sessionID, traceID string) *convo.Context {
	data, err := s.sessions.Load(ctx, sessionID)
	if err != nil && !errors.Is(err, sessiondb.ErrNotFound) {
		s.metrics.RecordSessionError()
		slog.Error("server: context load failed",
			"session_id", sessionID, "trace_id", traceID, "error", err)
	}
	return convo.Restore(data, sessionID)
}

// saveContext persists the snapshot attached to the terminal chunk.
func (s *Server) saveContext(ctx context.Context, sessionID, traceID string, out *chunk.Chunk) {
	if len(out.Context) == 0 {
		return
	}
	if err := s.sessions.Save(ctx, sessionID, out.Context); err != nil {
		s.metrics.RecordSessionError()
		slog.Error("server: context save failed",
			"session_id", sessionID, "trace_id", traceID, "error", err)
	}
}

func chunkIntent(ch *chunk.Chunk) string {
	if ch.Metadata == nil {
		return ""
	}
	return ch.Metadata.Intent
}
