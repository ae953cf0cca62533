package mcp

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/rmoralesv/go-app-monitor/internal/tool"
)

// Server implements the Model Context Protocol (MCP) server. It exposes
// the usage-record tools to external AI agents over JSON-RPC 2.0.
type Server struct {
	dispatcher *tool.Dispatcher
	appName    string
	port       string
}

// NewServer creates a new MCP server.
func NewServer(dispatcher *tool.Dispatcher, appName, port string) *Server {
	return &Server{
		dispatcher: dispatcher,
		appName:    appName,
		port:       port,
	}
}

// JSONRPCRequest represents a JSON-RPC 2.0 request.
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response.
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Handler returns the HTTP handler serving the MCP endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", s.handleRPC)
	mux.HandleFunc("/mcp/sse", s.handleSSE)
	return mux
}

// Start begins the MCP server on the configured port.
func (s *Server) Start() error {
	slog.Info("MCP server starting", "port", s.port)
	return http.ListenAndServe(":"+s.port, s.Handler())
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req JSONRPCRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, nil, -32700, "parse error")
		return
	}

	var result interface{}
	var err error

	switch req.Method {
	case "tools/list":
		result = map[string]interface{}{"tools": s.dispatcher.Tools()}
	case "tools/call":
		result, err = s.callTool(r, req.Params)
	case "initialize":
		result = map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo": map[string]string{
				"name":    s.appName,
				"version": "1.0.0",
			},
			"capabilities": map[string]interface{}{
				"tools": map[string]bool{"listChanged": false},
			},
		}
	default:
		writeError(w, req.ID, -32601, "method not found")
		return
	}

	if err != nil {
		writeError(w, req.ID, -32603, err.Error())
		return
	}

	writeResult(w, req.ID, result)
}

func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Send initial endpoint message
	fmt.Fprintf(w, "event: endpoint\ndata: /mcp\n\n")
	w.(http.Flusher).Flush()

	// Keep connection alive
	<-r.Context().Done()
}

func (s *Server) callTool(r *http.Request, params json.RawMessage) (interface{}, error) {
	var req struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(params, &req); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	if req.Arguments == nil {
		req.Arguments = json.RawMessage(`{}`)
	}

	text, err := s.dispatcher.Call(r.Context(), req.Name, req.Arguments)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"content": []map[string]interface{}{
			{"type": "text", "text": text},
		},
	}, nil
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Result: result}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

func writeError(w http.ResponseWriter, id interface{}, code int, message string) {
	resp := JSONRPCResponse{JSONRPC: "2.0", ID: id, Error: &RPCError{Code: code, Message: message}}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
