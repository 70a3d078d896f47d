package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"chatsync/internal/constants"
	"chatsync/internal/errors"
	"chatsync/internal/middleware"
	"chatsync/internal/models"
	"chatsync/internal/service"
	"chatsync/pkg/chatapi"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

const userIDHeader = "X-User-ID"

type Server struct {
	router  *mux.Router
	logger  *logrus.Logger
	manager service.ConversationManager
	server  *http.Server
	port    int
}

func NewServer(cfg *models.Config, manager service.ConversationManager, logger *logrus.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		logger:  logger,
		manager: manager,
		port:    cfg.Server.Port,
	}
	if s.port <= 0 {
		s.port = constants.DefaultServerPort
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Observability(s.logger))

	s.router.HandleFunc("/health", s.handleHealth()).Methods(http.MethodGet)
	s.router.HandleFunc("/metrics", s.handleMetrics()).Methods(http.MethodGet)

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/conversations", s.handleListConversations()).Methods(http.MethodGet)
	api.HandleFunc("/conversations", s.handleCreateConversation()).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/messages", s.handleFetchMessages()).Methods(http.MethodGet)
	api.HandleFunc("/conversations/{id}/messages", s.handleSendMessage()).Methods(http.MethodPost)
	api.HandleFunc("/conversations/{id}/read", s.handleMarkRead()).Methods(http.MethodPost)
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  constants.DefaultServerReadTimeoutSec * time.Second,
		WriteTimeout: constants.DefaultServerWriteTimeoutSec * time.Second,
		IdleTimeout:  constants.DefaultServerIdleTimeoutSec * time.Second,
	}

	s.logger.Infof("Starting server on port %d", s.port)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying router. Used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

func (s *Server) handleListConversations() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.requireUser(w, r)
		if !ok {
			return
		}

		summaries, err := s.manager.ListConversations(r.Context(), userID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, chatapi.ConversationListResponse{Conversations: summaries})
	}
}

func (s *Server) handleCreateConversation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.requireUser(w, r)
		if !ok {
			return
		}

		var req chatapi.CreateConversationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.NewValidationError("body", "invalid JSON payload"))
			return
		}

		// The requester is always part of the conversation they open.
		participants := append([]string{userID}, req.ParticipantIDs...)
		conv, err := s.manager.CreateOrGetConversation(r.Context(), participants, req.Title)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, conv)
	}
}

func (s *Server) handleFetchMessages() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		conversationID := mux.Vars(r)["id"]
		afterID := r.URL.Query().Get("after")

		limit := constants.DefaultHistoryPageSize
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				s.writeError(w, r, errors.NewValidationError("limit", "must be a positive integer"))
				return
			}
			limit = parsed
		}

		msgs, err := s.manager.FetchMessages(r.Context(), conversationID, userID, afterID, limit)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusOK, chatapi.MessagesResponse{Messages: msgs})
	}
}

func (s *Server) handleSendMessage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		conversationID := mux.Vars(r)["id"]

		var req chatapi.SendMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.NewValidationError("body", "invalid JSON payload"))
			return
		}

		msg, err := s.manager.AppendMessage(r.Context(), conversationID, userID, req.Text, req.ClientTempID)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		s.writeJSON(w, http.StatusCreated, msg)
	}
}

func (s *Server) handleMarkRead() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, ok := s.requireUser(w, r)
		if !ok {
			return
		}
		conversationID := mux.Vars(r)["id"]

		var req chatapi.MarkReadRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.writeError(w, r, errors.NewValidationError("body", "invalid JSON payload"))
			return
		}

		if err := s.manager.MarkRead(r.Context(), conversationID, userID, req.ThroughMessageID); err != nil {
			s.writeError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// requireUser extracts the caller identity forwarded by the portal
// gateway. Authentication itself happens upstream.
func (s *Server) requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(userIDHeader)
	if userID == "" {
		s.writeJSON(w, http.StatusUnauthorized, chatapi.ErrorResponse{
			Code:    string(errors.ErrCodeAuthorization),
			Message: "missing " + userIDHeader + " header",
		})
		return "", false
	}
	return userID, true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.WithError(err).Error("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.GetCode(err)
	status := httpStatusForCode(code)

	logEntry := s.logger.WithFields(logrus.Fields{
		service.LogFieldErrorCode:  string(code),
		service.LogFieldStatusCode: status,
		service.LogFieldMethod:     r.Method,
	}).WithError(err)
	if status >= http.StatusInternalServerError {
		logEntry.Error("Request failed")
	} else {
		logEntry.Debug("Request rejected")
	}

	// Client errors carry their real message; server errors stay generic
	// so internals never leak through the API.
	message := errors.GetUserMessage(err)
	if status < http.StatusInternalServerError {
		if appErr, ok := err.(*errors.AppError); ok {
			message = appErr.Message
		}
	}
	s.writeJSON(w, status, chatapi.ErrorResponse{
		Code:    string(code),
		Message: message,
	})
}

func httpStatusForCode(code errors.ErrorCode) int {
	switch code {
	case errors.ErrCodeInvalidParticipants,
		errors.ErrCodeEmptyMessage,
		errors.ErrCodeValidationFailed,
		errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case errors.ErrCodeNotFound:
		return http.StatusNotFound
	case errors.ErrCodeAuthorization:
		return http.StatusForbidden
	case errors.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
