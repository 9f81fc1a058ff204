// Package webui implements progress.PhaseCallback by broadcasting each
// update to connected browsers over a websocket, fed by an HTTP server
// built on gorilla/mux.
package webui

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/entropycollective/syncprogress/pkg/progress"
)

// Event is one JSON message pushed to every connected client.
type Event struct {
	Type          string `json:"type"`
	ItemsDone     int64  `json:"itemsDone,omitempty"`
	BytesDone     int64  `json:"bytesDone,omitempty"`
	ItemsTotal    int64  `json:"itemsTotal,omitempty"`
	BytesTotal    int64  `json:"bytesTotal,omitempty"`
	Status        string `json:"status,omitempty"`
	Message       string `json:"message,omitempty"`
	ErrorRetry    int    `json:"errorRetry,omitempty"`
}

// Server is a progress.PhaseCallback that serves a websocket feed of
// progress events and resolves reported errors by asking whichever
// browser client currently holds the decision channel.
type Server struct {
	log *zerolog.Logger

	mu         sync.Mutex
	clients    map[*websocket.Conn]struct{}
	itemsDone  int64
	bytesDone  int64
	itemsTotal int64
	bytesTotal int64

	upgrader    websocket.Upgrader
	decisions   chan progress.Response
	autoRespond progress.Response
}

// New creates a Server. autoRespond is the Response returned for
// ReportError when no browser client is connected to make a decision —
// demo deployments default this to ResponseIgnore so an unattended run
// never blocks forever.
func New(log *zerolog.Logger, autoRespond progress.Response) *Server {
	return &Server{
		log:     log,
		clients: make(map[*websocket.Conn]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		decisions:   make(chan progress.Response, 1),
		autoRespond: autoRespond,
	}
}

// Router builds the HTTP routes this server handles: a websocket upgrade
// endpoint and a decision-post endpoint used by the browser to answer a
// pending ReportError.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/decide/{response}", s.handleDecide).Methods(http.MethodPost)
	return r
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("webui: websocket upgrade failed")
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	// The demo UI is push-only; block here until the client disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleDecide(w http.ResponseWriter, r *http.Request) {
	switch mux.Vars(r)["response"] {
	case "retry":
		s.decisions <- progress.ResponseRetry
	default:
		s.decisions <- progress.ResponseIgnore
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) broadcast(ev Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		s.log.Error().Err(err).Msg("webui: marshaling event")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for conn := range s.clients {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.log.Debug().Err(err).Msg("webui: dropping unresponsive client")
			conn.Close()
			delete(s.clients, conn)
		}
	}
}

// --- progress.PhaseCallback ------------------------------------------------

func (s *Server) UpdateDataProcessed(items int, bytes int64) {
	s.mu.Lock()
	s.itemsDone += int64(items)
	s.bytesDone += bytes
	done, bytesDone, total, totalBytes := s.itemsDone, s.bytesDone, s.itemsTotal, s.bytesTotal
	s.mu.Unlock()

	s.broadcast(Event{Type: "progress", ItemsDone: done, BytesDone: bytesDone, ItemsTotal: total, BytesTotal: totalBytes})
}

func (s *Server) UpdateDataTotal(items int, bytes int64) {
	s.mu.Lock()
	s.itemsTotal += int64(items)
	s.bytesTotal += bytes
	done, bytesDone, total, totalBytes := s.itemsDone, s.bytesDone, s.itemsTotal, s.bytesTotal
	s.mu.Unlock()

	s.broadcast(Event{Type: "progress", ItemsDone: done, BytesDone: bytesDone, ItemsTotal: total, BytesTotal: totalBytes})
}

func (s *Server) UpdateStatus(text string) error {
	s.broadcast(Event{Type: "status", Status: text})
	return nil
}

func (s *Server) LogInfo(text string) error {
	s.broadcast(Event{Type: "log", Message: text})
	return nil
}

func (s *Server) ReportError(info progress.ErrorInfo) (progress.Response, error) {
	s.broadcast(Event{Type: "error", Message: info.Message, ErrorRetry: info.RetryNumber})

	s.mu.Lock()
	hasClients := len(s.clients) > 0
	s.mu.Unlock()
	if !hasClients {
		return s.autoRespond, nil
	}

	return <-s.decisions, nil
}
