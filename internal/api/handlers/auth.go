package handlers

import (
	"errors"
	"net/http"

	"github.com/hugh/salespulse/internal/api/dto"
	"github.com/hugh/salespulse/internal/api/middleware"
	"github.com/hugh/salespulse/internal/auth"
	"github.com/hugh/salespulse/internal/database/models"
)

type AuthHandler struct {
	authService auth.Authenticator
	rs          *Responder
	secure      bool
	tokenMaxAge int
}

// NewAuthHandler sets the login cookie Secure flag when secureCookie is
// true; the cookie lives as long as the token.
func NewAuthHandler(authService auth.Authenticator, rs *Responder, secureCookie bool, tokenMaxAge int) *AuthHandler {
	return &AuthHandler{authService: authService, rs: rs, secure: secureCookie, tokenMaxAge: tokenMaxAge}
}

// Register creates an account. Only admins reach this route.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if !decode(w, r, &req) {
		return
	}

	result, err := h.authService.Register(r.Context(), auth.RegisterInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      models.Role(req.Role),
	})
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, dto.RegisterResponse{
		User:              dto.ToUserDTO(result.User),
		TemporaryPassword: result.TemporaryPassword,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req dto.LoginRequest
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.authService.Login(r.Context(), auth.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Invalid credentials"})
		case errors.Is(err, auth.ErrInactiveUser):
			writeJSON(w, http.StatusUnauthorized, dto.ErrorResponse{Error: "Account is inactive"})
		default:
			h.rs.Error(w, r, err)
		}
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    resp.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   h.tokenMaxAge,
	})
	if err := middleware.SetCSRFCookie(w, h.secure, h.tokenMaxAge); err != nil {
		h.rs.Error(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.AuthResponse{
		Token: resp.Token,
		User:  dto.ToUserDTO(resp.User),
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	middleware.ClearCSRFCookie(w)

	writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true, Message: "Logged out"})
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.authService.GetUserByID(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		h.rs.Error(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToUserDTO(user))
}
