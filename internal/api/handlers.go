package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"tenderscan/internal/auth"
	"tenderscan/internal/domain"
	"tenderscan/internal/search"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.Password == "" {
		s.respondWithError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "could not register user")
		return
	}
	if err := s.store.CreateUser(r.Context(), req.Username, hash, domain.RoleUser); err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			s.respondWithError(w, http.StatusConflict, "username is already taken")
			return
		}
		s.logger.Error("failed to create user", zap.String("username", req.Username), zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not register user")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, map[string]string{"username": req.Username})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.UserByUsername(r.Context(), req.Username)
	if err != nil || !auth.CheckPassword(user.HashedPassword, req.Password) {
		s.respondWithError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := s.tokens.CreateToken(user.Username, user.Role)
	if err != nil {
		s.logger.Error("failed to issue token", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{
		"accessToken": token,
		"role":        string(user.Role),
	})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var filters search.Filters
	if err := json.NewDecoder(r.Body).Decode(&filters); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := filters.Normalize(); err != nil {
		s.respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	records := s.scraper.Run(r.Context(), &filters)

	sessionID, err := s.store.SaveSession(r.Context(), claims.Username(), records)
	if err != nil {
		s.logger.Error("failed to save parse session", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not save results")
		return
	}

	s.respondWithJSON(w, http.StatusOK, map[string]any{
		"sessionId": sessionID,
		"results":   records,
	})
}

type analyzeRequest struct {
	TenderID int64 `json:"tenderId"`
	ForceOCR bool  `json:"forceOcr"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tender, err := s.store.TenderByID(r.Context(), req.TenderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "tender not found")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "could not load tender")
		return
	}

	if !req.ForceOCR {
		if existing, err := s.store.AnalysisForTender(r.Context(), req.TenderID); err == nil {
			s.respondWithJSON(w, http.StatusOK, existing)
			return
		}
	}

	result, err := s.analysis.AnalyzeTender(r.Context(), *tender, req.ForceOCR)
	if err != nil {
		s.logger.Error("analysis failed", zap.Int64("tender_id", req.TenderID), zap.Error(err))
		s.respondWithError(w, http.StatusBadGateway, "analysis failed")
		return
	}
	if result == "" {
		s.respondWithError(w, http.StatusNotFound, "tender has no termination document")
		return
	}

	if err := s.store.SaveAnalysis(r.Context(), req.TenderID, result); err != nil {
		s.logger.Error("failed to save analysis", zap.Int64("tender_id", req.TenderID), zap.Error(err))
	}

	s.respondWithJSON(w, http.StatusOK, domain.TenderAnalysis{
		TenderID:   req.TenderID,
		Result:     result,
		AnalyzedAt: time.Now(),
	})
}

// handleLastSession returns the caller's own latest session for elevated
// roles, or the session assigned to the caller for plain users.
func (s *Server) handleLastSession(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		s.respondWithError(w, http.StatusUnauthorized, "missing bearer token")
		return
	}

	var session *domain.ParseSession
	var err error
	if claims.Role == domain.RoleUser {
		session, err = s.store.SessionForViewer(r.Context(), claims.Username())
	} else {
		session, err = s.store.LastSessionForOwner(r.Context(), claims.Username())
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "no session available")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "could not load session")
		return
	}
	s.respondWithJSON(w, http.StatusOK, session)
}

type assignSessionRequest struct {
	Username  string    `json:"username"`
	SessionID uuid.UUID `json:"sessionId"`
}

func (s *Server) handleAssignSession(w http.ResponseWriter, r *http.Request) {
	var req assignSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" || req.SessionID == uuid.Nil {
		s.respondWithError(w, http.StatusBadRequest, "username and sessionId are required")
		return
	}
	if err := s.store.AssignSessionToViewer(r.Context(), req.Username, req.SessionID); err != nil {
		s.logger.Error("failed to assign session", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not assign session")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]string{"message": "session assigned"})
}

func (s *Server) handleCreateAdminRequest(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := s.store.CreateAdminRequest(r.Context(), claims.Username()); err != nil {
		s.logger.Error("failed to create admin request", zap.Error(err))
		s.respondWithError(w, http.StatusInternalServerError, "could not create request")
		return
	}
	s.respondWithJSON(w, http.StatusCreated, map[string]string{"status": "pending"})
}

func (s *Server) handleListAdminRequests(w http.ResponseWriter, r *http.Request) {
	requests, err := s.store.PendingAdminRequests(r.Context())
	if err != nil {
		s.respondWithError(w, http.StatusInternalServerError, "could not list requests")
		return
	}
	s.respondWithJSON(w, http.StatusOK, requests)
}

type resolveAdminRequest struct {
	Approve bool `json:"approve"`
}

func (s *Server) handleResolveAdminRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request id")
		return
	}
	var req resolveAdminRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := s.store.ResolveAdminRequest(r.Context(), id, req.Approve); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.respondWithError(w, http.StatusNotFound, "no pending request with that id")
			return
		}
		s.respondWithError(w, http.StatusInternalServerError, "could not resolve request")
		return
	}
	s.respondWithJSON(w, http.StatusOK, map[string]bool{"approved": req.Approve})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	healthStatus := make(map[string]string)

	if err := s.store.Ping(ctx); err != nil {
		healthStatus["postgres"] = "unhealthy"
		s.logger.Error("health check failed for postgres", zap.Error(err))
	} else {
		healthStatus["postgres"] = "healthy"
	}

	if err := s.cache.Ping(ctx); err != nil {
		healthStatus["redis"] = "unhealthy"
		s.logger.Error("health check failed for redis", zap.Error(err))
	} else {
		healthStatus["redis"] = "healthy"
	}

	if healthStatus["postgres"] != "healthy" || healthStatus["redis"] != "healthy" {
		s.respondWithJSON(w, http.StatusServiceUnavailable, healthStatus)
		return
	}
	s.respondWithJSON(w, http.StatusOK, healthStatus)
}

// --- Helper Functions ---

func (s *Server) respondWithError(w http.ResponseWriter, code int, message string) {
	s.respondWithJSON(w, code, map[string]string{"error": message})
}

func (s *Server) respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
