package api

import (
	_ "embed"
	"encoding/json"
	"net/http"

	"github.com/heartrelay/heartrelay/pkg/types"
	"github.com/heartrelay/heartrelay/server/internal/store"
)

// Route paths.
const (
	PathIndex = "/"
	PathHeart = "/api/heart"
)

//go:embed index.html
var indexHTML []byte

// ReadObserver is notified of every /api/heart lookup.
type ReadObserver interface {
	ObserveRead(fresh bool)
}

// Handler is the HTTP handler for the relay port.
type Handler struct {
	store *store.Store
	obs   ReadObserver
}

// New creates a Handler reading from st. obs may be nil.
func New(st *store.Store, obs ReadObserver) *Handler {
	return &Handler{store: st, obs: obs}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case PathIndex:
		h.index(w, r)
	case PathHeart:
		h.heart(w, r)
	default:
		notFound(w)
	}
}

// BuildHeartBeat reads the store once and returns the JSON payload for it.
// Used by /api/heart and the WebSocket hub.
func BuildHeartBeat(st *store.Store) types.HeartBeat {
	return types.NewHeartBeat(st.Get())
}

// --- route handlers ---------------------------------------------------------

func (h *Handler) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(indexHTML) //nolint:errcheck
}

func (h *Handler) heart(w http.ResponseWriter, _ *http.Request) {
	hb := BuildHeartBeat(h.store)
	if h.obs != nil {
		h.obs.ObserveRead(hb.HeartBeat != nil)
	}

	w.Header().Set("Access-Control-Allow-Origin", "*")
	jsonResp(w, http.StatusOK, hb)
}

// --- helpers ----------------------------------------------------------------

// jsonResp writes v compactly with no trailing newline.
func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(body) //nolint:errcheck
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte("Not Found")) //nolint:errcheck
}
