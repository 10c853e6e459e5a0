package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// EventSource is the CloudEvents source of every streamed event.
const EventSource = "taskup"

// Event types. Auth events are EventTypeAuthPrefix + the event name with ":"
// replaced by ".", e.g. "io.taskup.auth.token.refresh".
const (
	EventTypeStateChange = "io.taskup.state.change"
	EventTypeRouteChange = "io.taskup.route.change"
	EventTypeAuthPrefix  = "io.taskup.auth."
)

// Topics accepted by the watch query parameter of /api/events.
const (
	TopicState = "state"
	TopicRoute = "route"
	TopicAuth  = "auth"
)

type message struct {
	topic string
	data  []byte
}

// StreamManager fans events out to connected websocket clients.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[chan message]struct{}
	logger      *slog.Logger
	now         func() time.Time
}

// NewStreamManager creates an empty StreamManager.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[chan message]struct{}),
		logger:      logger,
		now:         time.Now,
	}
}

// Subscribe registers a client buffer and returns it with its cancel func.
func (sm *StreamManager) Subscribe() (<-chan message, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan message, 32)
	sm.subscribers[ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			delete(sm.subscribers, ch)
			close(ch)
		})
	}
}

// Subscribers returns the number of connected clients.
func (sm *StreamManager) Subscribers() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers)
}

// Publish wraps data in a CloudEvent and broadcasts it to every client.
func (sm *StreamManager) Publish(topic, eventType string, data any) {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(EventSource)
	event.SetType(eventType)
	event.SetTime(sm.now())
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		sm.logger.Error("Failed to encode event data", "type", eventType, "err", err)
		return
	}
	raw, err := json.Marshal(event)
	if err != nil {
		sm.logger.Error("Failed to encode event", "type", eventType, "err", err)
		return
	}
	sm.broadcast(message{topic: topic, data: raw})
}

func (sm *StreamManager) broadcast(msg message) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("Event stream client buffer full, dropping event", "topic", msg.topic)
		}
	}
}

// checkOrigin admits requests without an Origin header, same-origin pages and
// the origins allowed by WithAllowedOrigins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if originAllowed(s.allowedOrigins, origin) {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// originAllowed matches origin against patterns the way the CORS middleware
// does: "*" matches anything and a single "*" inside a pattern is a wildcard.
func originAllowed(patterns []string, origin string) bool {
	origin = strings.ToLower(origin)
	for _, p := range patterns {
		p = strings.ToLower(p)
		if p == "*" || p == origin {
			return true
		}
		if prefix, suffix, ok := strings.Cut(p, "*"); ok {
			if len(origin) >= len(prefix)+len(suffix) &&
				strings.HasPrefix(origin, prefix) && strings.HasSuffix(origin, suffix) {
				return true
			}
		}
	}
	return false
}

// subscribeEvents handles GET /api/events. The optional watch parameter is a
// comma-separated list of topics; everything is sent when it is absent.
func (s *Server) subscribeEvents(w http.ResponseWriter, r *http.Request) {
	watch := parseWatch(r.URL.Query().Get("watch"))

	// Subscribe before the handshake completes so no event is missed.
	ch, cancel := s.streams.Subscribe()
	defer cancel()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	s.logger.Info("Event stream client connected", "remote", r.RemoteAddr, "watch", r.URL.Query().Get("watch"))

	// Reads only serve to notice the client going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			s.logger.Info("Event stream client disconnected", "remote", r.RemoteAddr)
			return
		case <-s.done:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"))
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !watch[msg.topic] {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg.data); err != nil {
				s.logger.Warn("Event stream write failed", "err", err)
				return
			}
		}
	}
}

func parseWatch(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	out := make(map[string]bool)
	for _, t := range strings.Split(raw, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out[t] = true
		}
	}
	return out
}

func authEventType(event string) string {
	return EventTypeAuthPrefix + strings.ReplaceAll(event, ":", ".")
}
