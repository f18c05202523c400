// ABOUTME: Protocol and stream HTTP handlers for POST /mcp and GET /sse
// ABOUTME: Resolves session keys, mirrors dispatcher responses onto live streams

package gateway

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/2389/studio-gateway/internal/mcp"
	"github.com/2389/studio-gateway/internal/stream"
)

// resolveSessionKey returns the caller's session key, minting a fresh one
// when the header is absent.
func resolveSessionKey(r *http.Request) string {
	if key := r.Header.Get(SessionHeader); key != "" {
		return key
	}
	return uuid.New().String()
}

// handleMCP processes one JSON-RPC request per POST. The response is written
// to the caller and mirrored to the session's live stream, if any. Malformed
// JSON comes back as a protocol error with HTTP 200; only storage failures
// surface as HTTP 503.
func (g *Gateway) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	key := resolveSessionKey(r)
	w.Header().Set(SessionHeader, key)

	body, err := io.ReadAll(io.LimitReader(r.Body, MaxRequestBodySize+1))
	if err != nil {
		g.writeProtocolResponse(w, key, protocolError(nil, mcp.JSONRPCParseError, "failed to read request body"))
		return
	}
	if int64(len(body)) > MaxRequestBodySize {
		g.writeProtocolResponse(w, key, protocolError(nil, mcp.JSONRPCInvalidRequest, "request body too large"))
		return
	}

	var req mcp.JSONRPCRequest
	if err := json.Unmarshal(body, &req); err != nil {
		g.writeProtocolResponse(w, key, protocolError(nil, mcp.JSONRPCParseError, "invalid JSON"))
		return
	}

	resp, err := g.dispatcher.Handle(r.Context(), req, key)
	if err != nil {
		g.logger.Error("dispatch failed", "error", err, "session_id", key)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "storage unavailable"})
		return
	}

	g.writeProtocolResponse(w, key, resp)
}

// writeProtocolResponse sends the envelope to the caller and mirrors it to
// the session's live channel.
func (g *Gateway) writeProtocolResponse(w http.ResponseWriter, key string, resp mcp.JSONRPCResponse) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		g.logger.Warn("failed to encode protocol response", "error", err)
	}

	if err := g.bridge.PublishJSON(key, "message", resp); err != nil {
		g.logger.Warn("failed to mirror response to stream", "error", err, "session_id", key)
	}
}

func protocolError(id json.RawMessage, code int, message string) mcp.JSONRPCResponse {
	if len(id) == 0 {
		id = json.RawMessage("null")
	}
	return mcp.JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error:   &mcp.JSONRPCError{Code: code, Message: message},
	}
}

// handleSSE attaches the caller as the session's live stream subscriber and
// relays bridge events until the client disconnects or is replaced.
func (g *Gateway) handleSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		g.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	key := resolveSessionKey(r)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.Header().Set(SessionHeader, key)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	g.logger.Debug("stream attached", "session_id", key)

	events := g.bridge.Subscribe(r.Context(), key)
	for ev := range events {
		writeSSEEvent(w, ev)
		flusher.Flush()
	}

	g.logger.Debug("stream detached", "session_id", key)
}

// writeSSEEvent writes a single SSE frame in the standard format:
// event: <name>\ndata: <json>\n\n
func writeSSEEvent(w io.Writer, ev stream.Event) {
	fmt.Fprintf(w, "event: %s\n", ev.Name)
	fmt.Fprintf(w, "data: %s\n\n", ev.Data)
}
