package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const liveReloadPath = "/__livereload"

const (
	reloadWriteWait  = 10 * time.Second
	reloadPongWait   = 60 * time.Second
	reloadPingPeriod = (reloadPongWait * 9) / 10
)

// Precompiled regex for case-insensitive tag matching
var (
	bodyTagRe = regexp.MustCompile(`(?i)</body>`)
	htmlTagRe = regexp.MustCompile(`(?i)</html>`)
)

// liveReloadScript is injected into HTML responses in dev mode
const liveReloadScript = `<script>
(function() {
  const url = (location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/__livereload";
  let lost = false;
  function connect() {
    const ws = new WebSocket(url);
    ws.onopen = () => {
      if (lost) location.reload();
      console.log("[LiveReload] Connected");
    };
    ws.onmessage = e => {
      const msg = JSON.parse(e.data);
      console.log("[LiveReload] " + (msg.path || "change") + ", reloading...");
      location.reload();
    };
    ws.onclose = () => {
      lost = true;
      setTimeout(connect, 1000);
    };
  }
  if (document.readyState === "complete") connect();
  else window.addEventListener("load", connect);
})();
</script>`

// reloadMessage is pushed to every browser when a watched file changes
type reloadMessage struct {
	Seq  uint64 `json:"seq"`
	Path string `json:"path,omitempty"`
}

// reloadHub tracks connected browsers and pushes change notifications
type reloadHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*reloadClient]bool
	seq     uint64
	closed  bool
}

type reloadClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newReloadHub() *reloadHub {
	return &reloadHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  256,
			WriteBufferSize: 256,
		},
		clients: make(map[*reloadClient]bool),
	}
}

// ServeHTTP upgrades to a websocket. Plain requests get the current change
// sequence as JSON so scripts without websockets can poll.
func (h *reloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !websocket.IsWebSocketUpgrade(r) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		fmt.Fprintf(w, `{"seq":%d}`, h.Seq())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error
		return
	}

	c := &reloadClient{conn: conn, send: make(chan []byte, 8)}
	if !h.add(c) {
		conn.Close()
		return
	}

	go c.readPump(h)
	c.writePump()
}

// Seq returns the number of changes broadcast so far.
func (h *reloadHub) Seq() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.seq
}

// Clients returns the number of connected browsers.
func (h *reloadHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *reloadHub) add(c *reloadClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = true
	return true
}

// remove must be called with mu held.
func (h *reloadHub) remove(c *reloadClient) {
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *reloadHub) drop(c *reloadClient) {
	h.mu.Lock()
	h.remove(c)
	h.mu.Unlock()
}

// broadcast tells every browser to reload. Clients that cannot keep up
// are disconnected.
func (h *reloadHub) broadcast(path string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.seq++
	msg, err := json.Marshal(reloadMessage{Seq: h.seq, Path: path})
	if err != nil {
		return
	}

	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.remove(c)
		}
	}
}

// close disconnects every browser and refuses new ones.
func (h *reloadHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.remove(c)
	}
}

// readPump discards client messages and notices when the browser goes away.
func (c *reloadClient) readPump(h *reloadHub) {
	defer h.drop(c)

	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(reloadPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(reloadPongWait))
	})
	for {
		if _, _, err := c.conn.NextReader(); err != nil {
			return
		}
	}
}

// writePump sends queued messages and keeps the connection alive with pings.
func (c *reloadClient) writePump() {
	ticker := time.NewTicker(reloadPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(reloadWriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(reloadWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// injectLiveReload wraps a handler to inject the live reload script into HTML responses
func injectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		lrw := &liveReloadResponseWriter{ResponseWriter: w}
		next.ServeHTTP(lrw, r)
		lrw.flush()
	})
}

// liveReloadResponseWriter buffers HTML responses to inject the script
type liveReloadResponseWriter struct {
	http.ResponseWriter
	buffer      []byte
	statusCode  int
	wroteHeader bool
	isHTML      bool
	checked     bool
}

func (w *liveReloadResponseWriter) WriteHeader(code int) {
	// Held back until the content type is known
	w.statusCode = code
}

func (w *liveReloadResponseWriter) Write(b []byte) (int, error) {
	if !w.checked {
		w.checked = true
		w.isHTML = strings.Contains(w.Header().Get("Content-Type"), "text/html")
	}

	if w.isHTML {
		w.buffer = append(w.buffer, b...)
		return len(b), nil
	}

	w.writeHeader()
	return w.ResponseWriter.Write(b)
}

func (w *liveReloadResponseWriter) writeHeader() {
	if w.wroteHeader {
		return
	}
	w.wroteHeader = true
	if w.statusCode != 0 {
		w.ResponseWriter.WriteHeader(w.statusCode)
	}
}

func (w *liveReloadResponseWriter) flush() {
	if !w.isHTML || len(w.buffer) == 0 {
		w.writeHeader()
		return
	}

	content := insertBefore(w.buffer, liveReloadScript)
	w.Header().Set("Content-Length", fmt.Sprintf("%d", len(content)))
	w.writeHeader()
	w.ResponseWriter.Write(content)
}

// insertBefore places script before </body>, else before </html>, else at
// the end of content.
func insertBefore(content []byte, script string) []byte {
	idx := len(content)
	if loc := bodyTagRe.FindIndex(content); loc != nil {
		idx = loc[0]
	} else if loc := htmlTagRe.FindIndex(content); loc != nil {
		idx = loc[0]
	}

	out := make([]byte, 0, len(content)+len(script))
	out = append(out, content[:idx]...)
	out = append(out, script...)
	out = append(out, content[idx:]...)
	return out
}
