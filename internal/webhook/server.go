package webhook

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/nkaliyev/tengebot/internal/botui"
	"github.com/nkaliyev/tengebot/internal/telegram"
)

// Server receives Bot API updates pushed by Telegram and feeds them to
// the dispatcher. It answers before the update is handled; Telegram only
// needs the 200, the real reply goes out through the bot client.
type Server struct {
	http       *http.Server
	dispatcher *botui.Dispatcher
	log        zerolog.Logger
}

// New builds the server. secret guards POST /webhook; /healthz stays open
// for probes.
func New(addr, secret string, dispatcher *botui.Dispatcher, log zerolog.Logger) *Server {
	s := &Server{
		dispatcher: dispatcher,
		log:        log,
	}

	mux := http.NewServeMux()
	mux.Handle("/webhook", SecretToken(secret)(http.HandlerFunc(s.handleUpdate)))
	mux.HandleFunc("/healthz", s.handleHealth)

	handler := Recovery(log)(
		Logger(log)(
			RequestID(mux),
		),
	)

	s.http = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Handler exposes the routed handler, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Start blocks serving HTTP until Shutdown. It returns
// http.ErrServerClosed after a clean shutdown, like net/http does.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("Starting webhook server")
	return s.http.ListenAndServe()
}

// Shutdown drains in-flight requests within the context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var upd telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		s.log.Warn().Err(err).Msg("Dropping malformed webhook update")
		WriteError(w, http.StatusBadRequest, "Malformed update")
		return
	}

	if upd.ChatID() == 0 {
		// An update kind we did not subscribe to. Acknowledge it so
		// Telegram does not redeliver.
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := s.dispatcher.Dispatch(upd); err != nil {
		s.log.Error().Err(err).Int64("update_id", upd.UpdateID).Msg("Dispatching webhook update failed")
		WriteError(w, http.StatusServiceUnavailable, "Try again later")
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
