package navigator

import (
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"tree_nav/internal/usecase/navigation"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

type watcher struct {
	conn *websocket.Conn
	// gorilla connections allow a single concurrent writer
	writeMu sync.Mutex
}

func (w *watcher) send(v any) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	return w.conn.WriteJSON(v)
}

// hub fans session views out to every websocket watching that session.
type hub struct {
	log      *zap.SugaredLogger
	mu       sync.RWMutex
	watchers map[string]map[*watcher]struct{}
}

func newHub(log *zap.SugaredLogger) *hub {
	return &hub{
		log:      log,
		watchers: make(map[string]map[*watcher]struct{}),
	}
}

func (h *hub) join(sessionID string, conn *websocket.Conn) *watcher {
	w := &watcher{conn: conn}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.watchers[sessionID] == nil {
		h.watchers[sessionID] = make(map[*watcher]struct{})
	}
	h.watchers[sessionID][w] = struct{}{}
	return w
}

func (h *hub) leave(sessionID string, w *watcher) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.watchers[sessionID], w)
	if len(h.watchers[sessionID]) == 0 {
		delete(h.watchers, sessionID)
	}
}

func (h *hub) broadcast(v navigation.View) {
	h.mu.RLock()
	targets := make([]*watcher, 0, len(h.watchers[v.SessionID]))
	for w := range h.watchers[v.SessionID] {
		targets = append(targets, w)
	}
	h.mu.RUnlock()

	for _, w := range targets {
		if err := w.send(v); err != nil {
			h.log.Warnf("drop watcher of session %s: %v", v.SessionID, err)
			w.conn.Close()
			h.leave(v.SessionID, w)
		}
	}
}

// closeSession disconnects everyone watching a deleted session.
func (h *hub) closeSession(sessionID string) {
	h.mu.Lock()
	targets := h.watchers[sessionID]
	delete(h.watchers, sessionID)
	h.mu.Unlock()

	for w := range targets {
		w.writeMu.Lock()
		_ = w.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session closed"))
		w.writeMu.Unlock()
		w.conn.Close()
	}
}
