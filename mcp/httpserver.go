package mcp

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// httpRequestKey is a custom context key for storing the original HTTP request
type httpRequestKey struct{}

// withHTTPRequest adds the original HTTP request to the context
func withHTTPRequest(ctx context.Context, req *http.Request) context.Context {
	return context.WithValue(ctx, httpRequestKey{}, req)
}

func httpContextFunc(ctx context.Context, r *http.Request) context.Context {
	return withHTTPRequest(ctx, r)
}

// HTTPServer serves the MCP endpoint alongside the job-event SSE stream.
type HTTPServer struct {
	mux    *http.ServeMux
	broker *EventBroker
}

// NewHTTPServer mounts the streamable MCP handler at endpoint and the event
// stream at endpoint+"/events".
func NewHTTPServer(logger *zap.Logger, s *server.MCPServer, broker *EventBroker, endpoint string) *HTTPServer {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()

	mcpHandler := server.NewStreamableHTTPServer(
		s,
		server.WithEndpointPath(endpoint),
		server.WithHTTPContextFunc(httpContextFunc),
	)
	mux.Handle(endpoint, mcpHandler)

	if broker != nil {
		mux.HandleFunc(endpoint+"/events", broker.HandleSSE)
		mux.HandleFunc(endpoint+"/events/stats", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			_ = json.NewEncoder(w).Encode(broker.Stats())
		})
	}

	return &HTTPServer{mux: mux, broker: broker}
}

// ServeHTTP implements http.Handler
func (s *HTTPServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
