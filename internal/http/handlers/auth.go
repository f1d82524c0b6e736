package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/taskhub/taskhub/internal/domain/user"
	"github.com/taskhub/taskhub/internal/security"
)

type UsersStore interface {
	Create(ctx context.Context, email, passwordHash, name, role string) (user.User, error)
	GetByEmail(ctx context.Context, email string) (user.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID, email, name, role string) (string, error)
}

type AuthHandler struct {
	users UsersStore
	jwt   TokenIssuer
	log   *slog.Logger
}

func NewAuthHandler(users UsersStore, jwt TokenIssuer, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, jwt: jwt, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Name     string `json:"name" binding:"omitempty,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest

	if !BindJSON(c, &req) {
		return
	}

	hash, err := security.HashPassword(req.Password)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "hash password", "err", err)
		RespondInternal(c)
		return
	}

	u, err := h.users.Create(c.Request.Context(), req.Email, hash, req.Name, "user")
	if err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			RespondBadRequest(c, "email_taken", "Email is already registered", nil)
			return
		}
		h.log.ErrorContext(c.Request.Context(), "create user", "err", err)
		RespondInternal(c)
		return
	}

	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Name, u.Role)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "issue token", "err", err)
		RespondInternal(c)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"user": u, "token": token})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest

	if !BindJSON(c, &req) {
		return
	}

	u, err := h.users.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// same answer as a bad password, do not reveal which
			RespondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
			return
		}
		h.log.ErrorContext(c.Request.Context(), "load user", "err", err)
		RespondInternal(c)
		return
	}

	if err := security.CheckPassword(u.PasswordHash, req.Password); err != nil {
		RespondError(c, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password", nil)
		return
	}

	token, err := h.jwt.GenerateAccessToken(u.ID, u.Email, u.Name, u.Role)
	if err != nil {
		h.log.ErrorContext(c.Request.Context(), "issue token", "err", err)
		RespondInternal(c)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": u, "token": token})
}

// Logout is stateless: the token stays valid until it expires, the
// client just drops it. The endpoint exists so clients have a uniform
// call to make.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}
