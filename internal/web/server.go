package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pixil98/catroom/internal/roomlist"
)

// Server exposes the read-only room list over HTTP. Every request gets a
// terminated response: internal failures answer with an explicit error
// body instead of silently dropping the reply.
type Server struct {
	port  uint16
	rooms *roomlist.Service
}

func NewServer(port uint16, rooms *roomlist.Service) *Server {
	return &Server{
		port:  port,
		rooms: rooms,
	}
}

func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get", s.handleGet)

	svr := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		svr.Close()
	}()

	slog.InfoContext(ctx, "http server listening", "addr", svr.Addr)

	err := svr.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("serving http on port %d: %w", s.port, err)
}

type roomsResponse struct {
	Rooms []roomlist.Summary `json:"rooms"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(roomsResponse{Rooms: s.rooms.List()})
	if err != nil {
		slog.ErrorContext(r.Context(), "marshalling room list", "error", err)
		http.Error(w, `{"error":"internal"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(body); err != nil {
		slog.WarnContext(r.Context(), "writing room list response", "error", err)
	}
}
