package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/geocoder89/mural/internal/auth"
	"github.com/geocoder89/mural/internal/domain/user"
	"github.com/geocoder89/mural/internal/security"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	Create(ctx context.Context, username, passwordHash string) (user.User, error)
	GetByUsername(ctx context.Context, username string) (user.User, error)
}

type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(hash, plain string) error
	VerifyDummy(plain string)
}

type TokenIssuer interface {
	Issue(id auth.Identity) (string, error)
}

type AuthHandler struct {
	users  UserStore
	hasher PasswordHasher
	tokens TokenIssuer
	log    *slog.Logger
}

func NewAuthHandler(users UserStore, hasher PasswordHasher, tokens TokenIssuer, log *slog.Logger) *AuthHandler {
	if log == nil {
		log = slog.Default()
	}

	return &AuthHandler{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
	}
}

type RegisterResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

type LoginResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Register(ctx *gin.Context) {
	var req user.Credentials

	if !Bind(ctx, &req) {
		return
	}

	rctx := ctx.Request.Context()

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		h.log.ErrorContext(rctx, "register: hash password", "err", err)
		RespondInternal(ctx, "Could not register user")
		return
	}

	u, err := h.users.Create(rctx, req.Username, hash)
	if err != nil {
		// same answer for a taken name as for any other failure
		if errors.Is(err, user.ErrDuplicateUsername) {
			h.log.InfoContext(rctx, "register: username taken", "username", req.Username)
		} else {
			h.log.ErrorContext(rctx, "register: create user", "err", err)
		}

		RespondInternal(ctx, "Could not register user")
		return
	}

	if isFormPost(ctx) {
		ctx.Redirect(http.StatusSeeOther, "/login")
		return
	}

	ctx.JSON(http.StatusOK, RegisterResponse{ID: u.ID, Username: u.Username})
}

func (h *AuthHandler) Login(ctx *gin.Context) {
	var req user.Credentials

	if !Bind(ctx, &req) {
		return
	}

	rctx := ctx.Request.Context()

	found, err := h.users.GetByUsername(rctx, req.Username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// keep the timing of an unknown user close to a wrong password
			h.hasher.VerifyDummy(req.Password)
			RespondUnauthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
			return
		}

		h.log.ErrorContext(rctx, "login: lookup user", "err", err)
		RespondInternal(ctx, "Could not log in")
		return
	}

	if err := h.hasher.Verify(found.PasswordHash, req.Password); err != nil {
		// a bare ErrMismatch is a wrong password; anything wrapped is a bad stored hash
		if err != security.ErrMismatch {
			h.log.WarnContext(rctx, "login: verify password", "user_id", found.ID, "err", err)
		}
		RespondUnauthorized(ctx, "invalid_credentials", "Username or password is incorrect.")
		return
	}

	token, err := h.tokens.Issue(auth.Identity{UserID: found.ID, Username: found.Username})
	if err != nil {
		h.log.ErrorContext(rctx, "login: issue token", "err", err)
		RespondInternal(ctx, "Could not generate access token")
		return
	}

	ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

// isFormPost reports whether the body came from an HTML form, in which case
// successful writes redirect instead of returning JSON.
func isFormPost(ctx *gin.Context) bool {
	switch ctx.ContentType() {
	case gin.MIMEPOSTForm, gin.MIMEMultipartPOSTForm:
		return true
	default:
		return false
	}
}
