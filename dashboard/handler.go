package dashboard

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// DefaultRefreshInterval is how often a connected browser refreshes.
const DefaultRefreshInterval = 5 * time.Second

const writeWait = 10 * time.Second

// Options configures the dashboard handler.
type Options struct {
	RefreshInterval time.Duration

	// MetricsPath is linked from the page footer when set.
	MetricsPath string

	Version string
}

// Handler serves the dashboard page, the JSON snapshot, a websocket feed and
// a PNG rendering of the chart.
type Handler struct {
	presenter *Presenter
	opts      Options
	mux       *http.ServeMux
	upgrader  websocket.Upgrader

	closeOnce sync.Once
	closed    chan struct{}
}

// NewHandler returns the dashboard's HTTP handler.
func NewHandler(p *Presenter, opts Options) *Handler {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}

	h := &Handler{
		presenter: p,
		opts:      opts,
		mux:       http.NewServeMux(),
		closed:    make(chan struct{}),
	}

	h.mux.HandleFunc("/", h.serveIndex)
	h.mux.HandleFunc("/api/snapshot", h.serveSnapshot)
	h.mux.HandleFunc("/ws", h.serveWebSocket)
	h.mux.HandleFunc("/chart.png", h.serveChart)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Close ends all websocket feeds.
func (h *Handler) Close() {
	h.closeOnce.Do(func() {
		close(h.closed)
	})
}

func (h *Handler) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	var buf bytes.Buffer
	err := indexTemplate.Execute(&buf, struct {
		RefreshMillis int64
		MetricsPath   string
		Version       string
	}{
		RefreshMillis: h.opts.RefreshInterval.Milliseconds(),
		MetricsPath:   h.opts.MetricsPath,
		Version:       h.opts.Version,
	})
	if err != nil {
		log.Errorf("could not render index page: %v", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (h *Handler) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")

	if err := json.NewEncoder(w).Encode(h.presenter.ComputeSnapshot()); err != nil {
		log.Debugf("could not write snapshot: %v", err)
	}
}

func (h *Handler) serveChart(w http.ResponseWriter, r *http.Request) {
	width, _ := strconv.Atoi(r.URL.Query().Get("width"))
	height, _ := strconv.Atoi(r.URL.Query().Get("height"))

	var buf bytes.Buffer
	if err := RenderPNG(&buf, h.presenter.ComputeSnapshot().Chart, width, height); err != nil {
		log.Errorln(err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// serveWebSocket pushes a snapshot right after the upgrade and then on every
// refresh tick until the client goes away or the handler is closed.
func (h *Handler) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugf("websocket upgrade: %v", err)
		return
	}
	defer conn.Close()

	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(h.presenter.ComputeSnapshot()); err != nil {
			log.Debugf("websocket write: %v", err)
			return
		}

		select {
		case <-ticker.C:
		case <-gone:
			return
		case <-h.closed:
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(writeWait))
			return
		}
	}
}

var indexTemplate = template.Must(template.New("index").Parse(indexHTML))
