package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/pizza-hub/api/internal/platform/httpx"
	"github.com/pizza-hub/api/internal/platform/requestctx"
	"github.com/pizza-hub/api/internal/services"
)

var errNoEditableFields = errors.New("no editable fields provided")

// MeHandlers exposes authenticated profile endpoints for the current user.
type MeHandlers struct {
	users          services.UserService
	orders         services.OrderService
	requireSession func(http.Handler) http.Handler
}

// NewMeHandlers constructs handlers enforcing session authentication before
// invoking the user and order services.
func NewMeHandlers(users services.UserService, orders services.OrderService, requireSession func(http.Handler) http.Handler) *MeHandlers {
	return &MeHandlers{users: users, orders: orders, requireSession: requireSession}
}

// Routes wires the /me endpoints onto the provided router.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.requireSession != nil {
		r.Use(h.requireSession)
	}
	r.Get("/", h.getProfile)
	r.Put("/", h.updateProfile)
	r.Get("/orders", h.listOrders)
}

func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("authentication_required", "authenticated session required", http.StatusUnauthorized))
		return
	}

	user, err := h.users.GetProfile(ctx, identity.UserID)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profileResponse{User: buildUserPayload(user)})
}

func (h *MeHandlers) updateProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		httpx.WriteError(ctx, w, httpx.NewError("user_service_unavailable", "user service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("authentication_required", "authenticated session required", http.StatusUnauthorized))
		return
	}

	cmd, err := parseUpdateProfileRequest(r, identity.UserID)
	if err != nil {
		writeBodyError(ctx, w, err)
		return
	}

	user, err := h.users.UpdateProfile(ctx, cmd)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profileResponse{User: buildUserPayload(user)})
}

func (h *MeHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok || identity.Email == "" {
		httpx.WriteError(ctx, w, httpx.NewError("authentication_required", "authenticated session required", http.StatusUnauthorized))
		return
	}

	orders, err := h.orders.ListOrdersByEmail(ctx, identity.Email)
	if err != nil {
		writeServiceError(ctx, w, err)
		return
	}

	payload := orderListResponse{Orders: make([]orderPayload, 0, len(orders))}
	for _, order := range orders {
		payload.Orders = append(payload.Orders, buildOrderPayload(order))
	}
	writeJSONResponse(w, http.StatusOK, payload)
}

// parseUpdateProfileRequest distinguishes absent fields from empty ones so a
// PUT only touches the fields the client actually sent.
func parseUpdateProfileRequest(r *http.Request, userID string) (services.UpdateProfileCommand, error) {
	body, err := readLimitedBody(r, maxBodySize)
	if err != nil {
		return services.UpdateProfileCommand{}, err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return services.UpdateProfileCommand{}, errors.New("invalid JSON payload")
	}

	cmd := services.UpdateProfileCommand{UserID: userID}
	touched := false

	if value, ok := raw["fullName"]; ok && !isJSONNull(value) {
		var fullName string
		if err := json.Unmarshal(value, &fullName); err != nil {
			return services.UpdateProfileCommand{}, errors.New("fullName must be a string")
		}
		cmd.FullName = &fullName
		touched = true
	}
	if value, ok := raw["email"]; ok && !isJSONNull(value) {
		var email string
		if err := json.Unmarshal(value, &email); err != nil {
			return services.UpdateProfileCommand{}, errors.New("email must be a string")
		}
		cmd.Email = &email
		touched = true
	}
	if value, ok := raw["password"]; ok && !isJSONNull(value) {
		var password string
		if err := json.Unmarshal(value, &password); err != nil {
			return services.UpdateProfileCommand{}, errors.New("password must be a string")
		}
		cmd.Password = &password
		touched = true
	}

	if !touched {
		return services.UpdateProfileCommand{}, errNoEditableFields
	}
	return cmd, nil
}

func isJSONNull(value json.RawMessage) bool {
	return strings.TrimSpace(string(value)) == "null"
}

type profileResponse struct {
	User userPayload `json:"user"`
}

type userPayload struct {
	ID         string `json:"id"`
	FullName   string `json:"fullName"`
	Email      string `json:"email"`
	Verified   bool   `json:"verified"`
	VerifiedAt string `json:"verifiedAt,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

func buildUserPayload(user services.User) userPayload {
	return userPayload{
		ID:         user.ID,
		FullName:   user.FullName,
		Email:      user.Email,
		Verified:   user.Verified,
		VerifiedAt: formatTimePtr(user.VerifiedAt),
		CreatedAt:  formatTime(user.CreatedAt),
	}
}
