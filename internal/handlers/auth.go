package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pizza-hub/api/internal/platform/httpx"
	"github.com/pizza-hub/api/internal/services"
)

// AuthHandlers exposes registration, verification and login endpoints.
type AuthHandlers struct {
	users   services.UserService
	limiter RateLimiter
}

// NewAuthHandlers constructs handlers over the user service. The limiter
// throttles credential guessing and registration spam per remote address.
func NewAuthHandlers(users services.UserService, limiter RateLimiter) *AuthHandlers {
	return &AuthHandlers{users: users, limiter: limiter}
}

// Routes wires the /auth endpoints onto the provided router.
func (h *AuthHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/register", h.register)
	r.Post("/verify", h.verify)
	r.Post("/login", h.login)
}

func (h *AuthHandlers) allow(w http.ResponseWriter, r *http.Request) bool {
	if h.limiter == nil {
		return true
	}
	if h.limiter.Allow(r.RemoteAddr) {
		return true
	}
	httpx.WriteError(r.Context(), w, httpx.NewError("rate_limited", "too many requests", http.StatusTooManyRequests))
	return false
}

func (h *AuthHandlers) register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req registerRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	user, err := h.users.Register(ctx, services.RegisterUserCommand{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, profileResponse{User: buildUserPayload(user)})
}

func (h *AuthHandlers) verify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req verifyRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	user, err := h.users.Verify(ctx, services.VerifyUserCommand{
		Email: req.Email,
		Code:  req.Code,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profileResponse{User: buildUserPayload(user)})
}

func (h *AuthHandlers) login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.allow(w, r) {
		return
	}

	var req loginRequest
	if err := decodeJSONBody(r, &req); err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	result, err := h.users.Login(ctx, services.LoginCommand{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, loginResponse{
		Token: result.Token,
		User:  buildUserPayload(result.User),
	})
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  userPayload `json:"user"`
}
