package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"dm_chat/internal/attach"
	chatRepo "dm_chat/internal/repository/chat"
	"dm_chat/internal/utils/log"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// HandleUploadFiles stores multipart files for an existing chat through
// the attachment collaborator and returns the opaque refs to embed in
// messages.
func (s *HttpServer) HandleUploadFiles() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := userFrom(r.Context())

		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxFileSize)
		if err := r.ParseMultipartForm(s.cfg.MaxFileSize); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("upload exceeds the maximum size of %d MB", s.cfg.MaxFileSize/(1024*1024)))
			return
		}

		other := r.FormValue("other_user_id")
		if other == "" {
			writeError(w, http.StatusBadRequest, "other_user_id is required")
			return
		}

		thread, err := s.chatRepo.GetExisting(r.Context(), user, other)
		if errors.Is(err, chatRepo.ErrThreadNotFound) {
			writeError(w, http.StatusBadRequest, "chat not found")
			return
		}
		if err != nil {
			log.Error("lookup chat for upload failed", zap.String("user", user), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to upload file")
			return
		}

		var stored []attach.File
		for _, header := range r.MultipartForm.File["files"] {
			f, err := header.Open()
			if err != nil {
				writeError(w, http.StatusBadRequest, "unreadable file "+header.Filename)
				return
			}

			ref, err := s.attachments.Put(r.Context(), thread.ID.Hex(), header.Filename, f)
			f.Close()
			if err != nil {
				log.Error("store attachment failed", zap.String("file", header.Filename), zap.Error(err))
				writeError(w, http.StatusInternalServerError, "failed to upload file")
				return
			}

			stored = append(stored, attach.File{
				Name: header.Filename,
				Ref:  ref,
				URL:  s.attachments.URL(ref),
			})
		}

		log.Info("files uploaded", zap.String("thread", thread.ID.Hex()), zap.Int("count", len(stored)))
		writeJSON(w, http.StatusOK, map[string]any{
			"message": fmt.Sprintf("%d file(s) uploaded successfully", len(stored)),
			"files":   stored,
		})
	}
}

// HandleDownload streams a stored attachment back to a participant.
func (s *HttpServer) HandleDownload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		ref := vars["thread"] + "/" + vars["name"]

		name, err := s.attachments.Name(ref)
		if err != nil {
			writeError(w, http.StatusNotFound, "attachment not found")
			return
		}

		f, err := s.attachments.Open(r.Context(), ref)
		if err != nil {
			writeError(w, http.StatusNotFound, "attachment not found")
			return
		}
		defer f.Close()

		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = io.Copy(w, f)
	}
}
