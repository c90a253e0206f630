package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/gym-session-reservation/internal/config"
	"github.com/iliyamo/gym-session-reservation/internal/model"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
	"github.com/iliyamo/gym-session-reservation/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg     config.Config
	Members *repository.MemberRepo
	Tokens  *repository.TokenRepo
	Logger  *slog.Logger
	Now     func() time.Time
}

func NewAuthHandler(cfg config.Config, m *repository.MemberRepo, t *repository.TokenRepo, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Members: m, Tokens: t, Logger: logger.With("handler", "auth"), Now: time.Now}
}

// ----- DTOs -----

type registerReq struct {
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Password       string     `json:"password"`
	MembershipType model.Tier `json:"membership_type"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}

type authResp struct {
	User    model.Member `json:"user"`
	Access  tokenPart    `json:"access"`
	Refresh tokenPart    `json:"refresh"`
}

// issue creates an access/refresh pair for m and stores the refresh hash,
// or rotates oldHash into it when oldHash is set.
func (h *AuthHandler) issue(c echo.Context, m model.Member, oldHash string) (authResp, error) {
	ctx, cancel := requestContext(c)
	defer cancel()
	now := h.Now()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, m.ID, m.Role, h.Cfg.AccessTTL, now)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTL, now)
	if err != nil {
		return authResp{}, err
	}
	newHash := utils.HashRefreshRaw(refresh.Raw)
	if oldHash != "" {
		err = h.Tokens.Rotate(ctx, m.ID, oldHash, newHash, refresh.Exp, now)
	} else {
		err = h.Tokens.StoreRefresh(ctx, m.ID, newHash, refresh.Exp)
	}
	if err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    m,
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register creates a member of the requested tier and returns tokens
// immediately.  Staff accounts are created with gymctl, never here.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if n := utf8.RuneCountInString(req.Name); n < 2 || n > 100 {
		return invalid(c, "name must be between 2 and 100 characters")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return invalid(c, "valid email required")
	}
	if err := utils.CheckPassword(req.Password); err != nil {
		return invalid(c, err.Error())
	}
	if req.MembershipType == "" {
		req.MembershipType = model.TierStandard
	}
	if !req.MembershipType.Valid() {
		return invalid(c, "membership_type must be standard, premium or elite")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	uid, err := h.Members.Create(ctx, repository.NewMember{
		Name: req.Name, Email: req.Email, Password: req.Password,
		Role: model.RoleMember, Tier: req.MembershipType,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	m, err := h.Members.GetByID(ctx, uid)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	resp, err := h.issue(c, m, "")
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	h.Logger.Info("member registered", "user_id", uid, "tier", m.MembershipType)
	return c.JSON(http.StatusCreated, resp)
}

// Login verifies credentials and returns a new token pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return invalid(c, "invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return invalid(c, "email/password required")
	}

	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrMemberNotFound) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "Invalid credentials"})
		}
		return respondError(c, h.Logger, err)
	}
	if !utils.VerifyPassword(m.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_credentials", "message": "Invalid credentials"})
	}
	if !m.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account_disabled", "message": "Account is deactivated"})
	}
	if err := h.Members.TouchLogin(ctx, m.ID, h.Now()); err != nil {
		h.Logger.Warn("touch last login failed", "user_id", m.ID, "error", err)
	}

	resp, err := h.issue(c, m, "")
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash and rotates it.  Reusing a
// rotated token fails with 401.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return invalid(c, "refresh_token required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := requestContext(c)
	defer cancel()
	uid, err := h.Tokens.ValidateRefresh(ctx, hash, h.Now())
	if err != nil {
		return h.invalidRefresh(c, err)
	}
	m, err := h.Members.GetByID(ctx, uid)
	if err != nil {
		return h.invalidRefresh(c, err)
	}
	if !m.IsActive {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "account_disabled", "message": "Account is deactivated"})
	}
	resp, err := h.issue(c, m, hash)
	if err != nil {
		return h.invalidRefresh(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuthHandler) invalidRefresh(c echo.Context, err error) error {
	if errors.Is(err, repository.ErrInvalidRefresh) || errors.Is(err, repository.ErrMemberNotFound) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_refresh", "message": "Invalid or expired refresh token"})
	}
	return respondError(c, h.Logger, err)
}

// Logout revokes the refresh token in the body.  It does not require an
// access token, so a client holding only an expired access token can still
// end its session.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return invalid(c, "refresh_token required")
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken)), h.Now()); err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// LogoutAll revokes every refresh token of the authenticated member.
func (h *AuthHandler) LogoutAll(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	if err := h.Tokens.RevokeAllForUser(ctx, a.ID, h.Now()); err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Me returns the authenticated member, including benefit counters.
func (h *AuthHandler) Me(c echo.Context) error {
	a, ok := actor(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := requestContext(c)
	defer cancel()
	m, err := h.Members.GetByID(ctx, a.ID)
	if err != nil {
		return respondError(c, h.Logger, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"user": m})
}
