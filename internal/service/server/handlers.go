package server

import (
	"errors"
	"net/http"

	chatRepo "dm_chat/internal/repository/chat"
	"dm_chat/internal/service/delivery"
	"dm_chat/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleGetToken issues an access token for the given user. Credential
// checks live in the identity collaborator upstream; this route exists so
// the system runs standalone in development.
func (s *HttpServer) HandleGetToken() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := mux.Vars(r)["user"]

		token, err := s.authManager.Issue(userID)
		if err != nil {
			log.Error("issue token failed", zap.String("user", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to create access token")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{
			"access_token": token,
			"token_type":   "bearer",
		})
	}
}

// HandleChatHistory returns the message sequence shared with the other
// user, marking messages addressed to the caller as read on the way.
func (s *HttpServer) HandleChatHistory() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		other := mux.Vars(r)["other"]

		thread, err := s.engine.OpenHistory(r.Context(), user, other)
		if err != nil {
			if errors.Is(err, delivery.ErrValidation) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			log.Error("open history failed", zap.String("user", user), zap.String("other", other), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to retrieve chat history")
			return
		}

		writeJSON(w, http.StatusOK, thread.Messages)
	}
}

// HandleListThreads returns summaries of the caller's threads.
func (s *HttpServer) HandleListThreads() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())

		summaries, err := s.chatRepo.ListUserThreads(r.Context(), user)
		if err != nil {
			log.Error("list threads failed", zap.String("user", user), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to retrieve chat history")
			return
		}

		writeJSON(w, http.StatusOK, summaries)
	}
}

// HandleBlockUser marks the shared thread blocked by the caller.
func (s *HttpServer) HandleBlockUser() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())
		blocked := mux.Vars(r)["user"]

		if blocked == user {
			writeError(w, http.StatusBadRequest, "cannot block yourself")
			return
		}

		err := s.chatRepo.SetBlocked(r.Context(), user, blocked, user)
		if errors.Is(err, chatRepo.ErrThreadNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		if err != nil {
			log.Error("block user failed", zap.String("user", user), zap.String("blocked", blocked), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to block user")
			return
		}

		log.Info("user blocked", zap.String("user", user), zap.String("blocked", blocked))
		writeJSON(w, http.StatusOK, map[string]string{
			"message": "User " + blocked + " blocked successfully",
		})
	}
}
