package server

import (
	"encoding/json"
	"net/http"

	"dm_chat/internal/attach"
	"dm_chat/internal/auth"
	"dm_chat/internal/config"
	"dm_chat/internal/metrics"
	chatRepo "dm_chat/internal/repository/chat"
	"dm_chat/internal/service/delivery"
	"dm_chat/internal/service/presence"

	"github.com/gorilla/mux"
)

type (
	HttpServer struct {
		cfg         *config.Config
		registry    *presence.Registry
		engine      *delivery.Engine
		chatRepo    *chatRepo.ChatRepo
		authManager *auth.Manager
		attachments *attach.LocalStore
	}
)

func NewHttpServer(cfg *config.Config, registry *presence.Registry, engine *delivery.Engine,
	repo *chatRepo.ChatRepo, authManager *auth.Manager, attachments *attach.LocalStore) *HttpServer {
	return &HttpServer{
		cfg:         cfg,
		registry:    registry,
		engine:      engine,
		chatRepo:    repo,
		authManager: authManager,
		attachments: attachments,
	}
}

func (s *HttpServer) Run() error {
	return http.ListenAndServe(s.cfg.ListenAddr, s.Router())
}

func (s *HttpServer) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/ws/{token}", s.HandleConnect()).Methods(http.MethodGet)
	r.HandleFunc("/get_token/{user}", s.HandleGetToken()).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	authed := r.NewRoute().Subrouter()
	authed.Use(s.requireAuth)
	authed.HandleFunc("/chat_history", s.HandleListThreads()).Methods(http.MethodGet)
	authed.HandleFunc("/chat_history/{other}", s.HandleChatHistory()).Methods(http.MethodGet)
	authed.HandleFunc("/upload_files", s.HandleUploadFiles()).Methods(http.MethodPost)
	authed.HandleFunc("/attachments/{thread}/{name}", s.HandleDownload()).Methods(http.MethodGet)
	authed.HandleFunc("/block_user/{user}", s.HandleBlockUser()).Methods(http.MethodPost)

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}
