package rest

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/hyvve/hyvve/internal/activity"
	"github.com/hyvve/hyvve/internal/platform/requestctx"
	"golang.org/x/net/websocket"
)

type eventResponse struct {
	ID         string `json:"id"`
	Kind       string `json:"kind"`
	ActorID    string `json:"actor_id,omitempty"`
	SubjectID  string `json:"subject_id,omitempty"`
	Summary    string `json:"summary"`
	OccurredAt string `json:"occurred_at"`
}

func eventToResponse(event activity.Event) eventResponse {
	return eventResponse{
		ID:         event.ID,
		Kind:       event.Kind,
		ActorID:    event.ActorID,
		SubjectID:  event.SubjectID,
		Summary:    event.Summary,
		OccurredAt: event.OccurredAt.UTC().Format(time.RFC3339),
	}
}

func (h *Handler) handleListActivity(w http.ResponseWriter, r *http.Request) {
	if h.journal == nil {
		writeJSON(w, http.StatusOK, map[string][]eventResponse{"events": {}})
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	events, err := h.journal.Recent(r.Context(), scope.ID, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	response := make([]eventResponse, 0, len(events))
	for _, event := range events {
		response = append(response, eventToResponse(event))
	}
	writeJSON(w, http.StatusOK, map[string][]eventResponse{"events": response})
}

// feedPeer serializes writes to one websocket subscriber.
type feedPeer struct {
	mu      sync.Mutex
	encoder *json.Encoder
}

func newFeedPeer(w io.Writer) *feedPeer {
	return &feedPeer{encoder: json.NewEncoder(w)}
}

// Send implements activity.Subscriber.
func (p *feedPeer) Send(event activity.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.encoder.Encode(eventToResponse(event))
}

// handleActivityStream upgrades to a websocket and forwards journal events
// for the scoped workspace until the client disconnects.
func (h *Handler) handleActivityStream(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.Error(w, "live feed is not configured", http.StatusServiceUnavailable)
		return
	}
	scope, _ := requestctx.WorkspaceFromContext(r.Context())

	handler := websocket.Handler(func(conn *websocket.Conn) {
		defer func() {
			_ = conn.Close()
		}()

		peer := newFeedPeer(conn)
		h.hub.Subscribe(scope.ID, peer)
		defer h.hub.Unsubscribe(scope.ID, peer)

		// Drain client frames so pings keep the connection alive; any
		// read error means the peer is gone.
		buf := make([]byte, 512)
		for {
			if _, err := conn.Read(buf); err != nil {
				return
			}
		}
	})
	handler.ServeHTTP(w, r)
}
