// Package api serves the cleaned catalog to authenticated consumers:
// brand-equality search over products and (brand, model, year) lookups
// against the dimensions-by-model reference table.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/gridline-data/catalog-cli/internal/catalog"
	"github.com/gridline-data/catalog-cli/internal/model"
)

// Server is the query API over the cleaned catalog.
type Server struct {
	store  catalog.Store
	issuer *TokenIssuer
	router chi.Router
}

// NewServer builds the router with auth and CORS wired in.
func NewServer(store catalog.Store, issuer *TokenIssuer, allowedOrigins []string) *Server {
	s := &Server{store: store, issuer: issuer}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Post("/auth/register", s.handleRegister)
	r.Post("/auth/token", s.handleToken)

	r.Group(func(r chi.Router) {
		r.Use(issuer.RequireAuth)
		r.Get("/search", s.handleSearch)
		r.Get("/dimensions", s.handleDimensions)
	})

	s.router = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := ValidateParam("username", req.Username); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Password == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		zap.L().Error("api: hash password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	user := model.User{
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, catalog.ErrAlreadyExists) {
			writeError(w, http.StatusConflict, "username already registered")
			return
		}
		zap.L().Error("api: create user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{"username": user.Username})
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := s.store.GetUser(r.Context(), req.Username)
	if err != nil {
		zap.L().Error("api: get user", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}
	if user == nil || !CheckPassword(user.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "incorrect username or password")
		return
	}

	token, err := s.issuer.Issue(user.Username)
	if err != nil {
		zap.L().Error("api: issue token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "authentication failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"access_token": token,
		"token_type":   "bearer",
		"expires_in":   int(s.issuer.TTL().Seconds()),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	brand := r.URL.Query().Get("brand")
	if err := ValidateParam("brand", brand); err != nil {
		zap.L().Warn("api: rejected search input",
			zap.String("brand", brand),
			zap.String("user", UserFromContext(r.Context())),
		)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	products, err := s.store.SearchByBrand(r.Context(), brand)
	if err != nil {
		zap.L().Error("api: search by brand", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(products),
		"data":    products,
	})
}

func (s *Server) handleDimensions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	brand := q.Get("brand")
	modelName := q.Get("model")
	yearStr := q.Get("year")

	if err := ValidateParam("brand", brand); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ValidateParam("model", modelName); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "year must be an integer")
		return
	}
	if err := ValidateYear(year); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dims, err := s.store.DimensionsForModel(r.Context(), brand, modelName, year)
	if err != nil {
		zap.L().Error("api: dimensions for model", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"count":   len(dims),
		"data":    dims,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
