package tracing

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/prasenjit/go-meraki-mcp/internal/models"
)

const (
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second
)

// WebSocketHandler streams new traces to WebSocket clients. Query
// parameters operationId, credential, method and errorsOnly=true narrow
// the stream.
type WebSocketHandler struct {
	service  *Service
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new WebSocket handler
func NewWebSocketHandler(service *Service, logger zerolog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		service: service,
		logger:  logger.With().Str("component", "trace_stream").Logger(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// StreamFilter builds the stream filter from request query parameters
func StreamFilter(r *http.Request) *models.TraceFilter {
	q := r.URL.Query()
	return &models.TraceFilter{
		OperationID: q.Get("operationId"),
		Credential:  q.Get("credential"),
		Method:      strings.ToUpper(q.Get("method")),
		ErrorsOnly:  q.Get("errorsOnly") == "true",
	}
}

// ServeHTTP upgrades the connection and forwards matching traces until
// the client disconnects
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	filter := StreamFilter(r)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	subID, traces := h.service.Subscribe()
	defer h.service.Unsubscribe(subID)

	log := h.logger.With().Str("subscriber", subID).Logger()
	log.Debug().Str("operation", filter.OperationID).Str("credential", filter.Credential).Msg("trace stream opened")

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Clients only send control frames; a read error means they left
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case trace, ok := <-traces:
			if !ok {
				return
			}
			if !filter.Matches(trace) {
				continue
			}

			data, err := json.Marshal(trace)
			if err != nil {
				log.Error().Err(err).Str("trace", trace.ID).Msg("Failed to marshal trace")
				continue
			}

			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Msg("trace stream closed by write error")
				return
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}

		case <-done:
			log.Debug().Msg("trace stream closed")
			return
		}
	}
}
