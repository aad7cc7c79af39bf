package session

import (
	"log/slog"
	"sync"
	"time"

	"gitnet/internal/graph"
	"gitnet/internal/watcher"
)

// UpdateType identifies what an Update carries.
type UpdateType string

const (
	// UpdateGraph carries a new layout, or the last good one when degraded.
	UpdateGraph UpdateType = "graph"
	// UpdateEvent forwards a change notification from the watcher.
	UpdateEvent UpdateType = "event"
	// UpdateError reports a refresh that could not run at all.
	UpdateError UpdateType = "error"
	// UpdateClosed is the last update a subscriber receives.
	UpdateClosed UpdateType = "closed"
)

// Update is one message to the presentation layer.
type Update struct {
	Type      UpdateType               `json:"type"`
	RepoPath  string                   `json:"repoPath"`
	Seq       uint64                   `json:"seq,omitempty"`
	Graph     *graph.VisualizationData `json:"graph,omitempty"`
	Event     *watcher.Event           `json:"event,omitempty"`
	Degraded  bool                     `json:"degraded,omitempty"`
	Reason    string                   `json:"reason,omitempty"`
	Timestamp time.Time                `json:"timestamp"`
}

// hub fans updates out to subscribers keyed by repository root. Sends never
// block: an update for a full subscriber is dropped and logged.
type hub struct {
	logger *slog.Logger
	buffer int

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]chan Update
}

func newHub(buffer int, logger *slog.Logger) *hub {
	return &hub{
		logger: logger,
		buffer: buffer,
		subs:   make(map[string]map[uint64]chan Update),
	}
}

func (h *hub) subscribe(key string) (<-chan Update, func()) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	ch := make(chan Update, h.buffer)
	if h.subs[key] == nil {
		h.subs[key] = make(map[uint64]chan Update)
	}
	h.subs[key][id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() { h.remove(key, id) })
	}
	return ch, cancel
}

func (h *hub) remove(key string, id uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := h.subs[key]
	ch, ok := subs[id]
	if !ok {
		return
	}
	delete(subs, id)
	if len(subs) == 0 {
		delete(h.subs, key)
	}
	close(ch)
}

func (h *hub) publish(key string, u Update) {
	if u.Timestamp.IsZero() {
		u.Timestamp = time.Now()
	}
	u.RepoPath = key

	h.mu.Lock()
	defer h.mu.Unlock()

	for id, ch := range h.subs[key] {
		select {
		case ch <- u:
		default:
			h.logger.Warn("Dropping update for slow subscriber",
				"repoPath", key,
				"subscriber", id,
				"type", string(u.Type),
			)
		}
	}
}

// closeAll sends a final closed update where there is room and closes every
// subscriber of key.
func (h *hub) closeAll(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, ch := range h.subs[key] {
		select {
		case ch <- Update{Type: UpdateClosed, RepoPath: key, Timestamp: time.Now()}:
		default:
		}
		close(ch)
	}
	delete(h.subs, key)
}

func (h *hub) count(key string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[key])
}
