package dev

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ReloadPath is the websocket endpoint browsers connect to.
const ReloadPath = "/_gallia/reload"

// Reload message types.
const (
	// MsgReload reloads the page.
	MsgReload = "reload"
	// MsgCSS refetches the stylesheet named by File, or every stylesheet
	// when File is empty.
	MsgCSS = "css"
)

// ReloadMessage is sent to browsers as JSON.
type ReloadMessage struct {
	Type string `json:"type"`
	File string `json:"file,omitempty"`
}

const (
	writeWait  = 5 * time.Second
	sendBuffer = 8
)

// ReloadServer fans reload messages out to connected browsers. Every
// connection has its own writer fed by a buffered queue; a browser whose
// queue is full is disconnected.
type ReloadServer struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	clients map[*reloadClient]struct{}
	closed  bool
}

type reloadClient struct {
	conn *websocket.Conn
	send chan ReloadMessage
}

// NewReloadServer creates a reload server. A nil logger uses slog.Default.
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadServer{
		upgrader: websocket.Upgrader{
			// Preview pages are opened under any host name.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*reloadClient]struct{}),
	}
}

// HandleWebSocket upgrades the request and serves the browser until it
// disconnects.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("reload upgrade failed", "error", err)
		return
	}
	c := &reloadClient{conn: conn, send: make(chan ReloadMessage, sendBuffer)}
	if !r.add(c) {
		conn.Close()
		return
	}
	r.logger.Debug("reload client connected", "remote", req.RemoteAddr)
	go r.write(c)

	// Browsers never send; reading only detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	r.remove(c)
}

func (r *ReloadServer) add(c *reloadClient) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return false
	}
	r.clients[c] = struct{}{}
	return true
}

// remove drops c and ends its writer. It is safe to call more than once.
func (r *ReloadServer) remove(c *reloadClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.drop(c)
}

// drop requires r.mu.
func (r *ReloadServer) drop(c *reloadClient) {
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}
}

// write sends queued messages until the queue is closed, then closes the
// connection, which also ends the read loop of HandleWebSocket.
func (r *ReloadServer) write(c *reloadClient) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteJSON(msg); err != nil {
			r.logger.Debug("dropping reload client", "error", err)
			r.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(writeWait))
}

// Send queues msg for every connected browser.
func (r *ReloadServer) Send(msg ReloadMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		select {
		case c.send <- msg:
		default:
			r.logger.Debug("reload client too slow, disconnecting")
			r.drop(c)
		}
	}
}

// NotifyReload asks every browser to reload the page.
func (r *ReloadServer) NotifyReload() {
	r.Send(ReloadMessage{Type: MsgReload})
}

// NotifyCSS asks every browser to refetch a stylesheet.
func (r *ReloadServer) NotifyCSS(file string) {
	r.Send(ReloadMessage{Type: MsgCSS, File: file})
}

// ClientCount returns the number of connected browsers.
func (r *ReloadServer) ClientCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Close disconnects every browser and refuses new ones.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	for c := range r.clients {
		r.drop(c)
	}
}

// DevClientScript is injected before </body> of every served page. It
// follows MsgReload and MsgCSS, and lists the mount failures the server
// put in window.__galliaErrors.
const DevClientScript = `<script>
(function() {
  var failures = window.__galliaErrors || [];
  if (failures.length) {
    var box = document.createElement('pre');
    box.id = 'gallia-errors';
    box.style.cssText = 'position:fixed;left:0;right:0;bottom:0;max-height:50%;overflow:auto;margin:0;padding:12px;background:#2b0b0b;color:#fdd;font:13px monospace;z-index:2147483647';
    box.textContent = failures.length + ' component(s) failed to mount:\n\n' + failures.join('\n\n');
    document.body.appendChild(box);
  }

  function restyle(file) {
    document.querySelectorAll('link[rel="stylesheet"]').forEach(function(link) {
      var url = new URL(link.href);
      if (file && url.pathname.split('/').pop() !== file) return;
      url.searchParams.set('_gallia', Date.now());
      link.href = url.toString();
    });
  }

  function connect(delay) {
    var scheme = location.protocol === 'https:' ? 'wss://' : 'ws://';
    var ws = new WebSocket(scheme + location.host + '` + ReloadPath + `');
    ws.onopen = function() { delay = 500; };
    ws.onmessage = function(e) {
      var msg = JSON.parse(e.data);
      if (msg.type === '` + MsgReload + `') location.reload();
      if (msg.type === '` + MsgCSS + `') restyle(msg.file);
    };
    ws.onclose = function() {
      setTimeout(function() { connect(Math.min(delay * 2, 10000)); }, delay);
    };
  }
  connect(500);
})();
</script>
`
