package handler

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"net/http"
	"net/mail"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/THXDUST/portuga-api/internal/auth"
	"github.com/THXDUST/portuga-api/internal/config"
	"github.com/THXDUST/portuga-api/internal/middleware"
	"github.com/THXDUST/portuga-api/internal/queue"
	"github.com/THXDUST/portuga-api/internal/repository"
)

// csrfCookieName carries the double-submit CSRF token. Not HttpOnly:
// the frontend must read it back into the request body.
const csrfCookieName = "csrf_token"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    *repository.UserRepo
	Hasher   *auth.CredentialHasher
	Auth     *auth.Authenticator
	Sessions *auth.SessionManager
	Resolver *auth.PermissionResolver
	Limiter  *auth.LoginLimiter
}

func NewAuthHandler(cfg config.Config, users *repository.UserRepo, hasher *auth.CredentialHasher,
	authn *auth.Authenticator, sessions *auth.SessionManager, resolver *auth.PermissionResolver,
	limiter *auth.LoginLimiter) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Hasher: hasher, Auth: authn,
		Sessions: sessions, Resolver: resolver, Limiter: limiter}
}

// ----- DTOs -----

type loginReq struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me"`
	CSRFToken  string `json:"csrf_token"`
}

type registerReq struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	TermsAccepted   bool   `json:"terms_accepted"`
	CSRFToken       string `json:"csrf_token"`
}

// CSRFToken issues a signed double-submit token: the value goes into a
// cookie and the response body, and login/register require the two
// copies to match.
func (h *AuthHandler) CSRFToken(c echo.Context) error {
	token, err := auth.NewCSRFToken([]byte(h.Cfg.EncryptionKey))
	if err != nil {
		return jsonFail(c, http.StatusInternalServerError, "Could not issue token")
	}
	c.SetCookie(&http.Cookie{
		Name:     csrfCookieName,
		Value:    token,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   c.IsTLS(),
		Expires:  time.Now().Add(2 * time.Hour),
	})
	return jsonOK(c, http.StatusOK, echo.Map{"csrf_token": token})
}

func (h *AuthHandler) validCSRF(c echo.Context, bodyToken string) bool {
	cookie, err := c.Cookie(csrfCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}
	return auth.VerifyCSRFToken([]byte(h.Cfg.EncryptionKey), cookie.Value) &&
		auth.CSRFTokensMatch(cookie.Value, bodyToken)
}

// Login authenticates an email+password pair. Built-in demo accounts
// are checked first and skip CSRF and rate limiting, exactly like the
// web frontend expects. Everything else goes through the full path:
// CSRF, rate limit, credential store, session issue.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return jsonFail(c, http.StatusBadRequest, "Invalid body")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || req.Password == "" {
		return jsonFail(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if auth.IsBuiltInEmail(req.Email) {
		return h.loginBuiltIn(ctx, c, req)
	}

	if !h.validCSRF(c, req.CSRFToken) {
		return jsonFail(c, http.StatusBadRequest, "Invalid CSRF token")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return jsonFail(c, http.StatusBadRequest, "Invalid email format")
	}

	ip := c.RealIP()
	if rl := h.Limiter.Check(ctx, req.Email, ip); !rl.Allowed {
		waitMin := int(math.Ceil(rl.Wait.Minutes()))
		if waitMin < 1 {
			waitMin = 1
		}
		return c.JSON(http.StatusTooManyRequests, echo.Map{
			"success":      false,
			"message":      "Too many login attempts. Please try again later.",
			"wait_minutes": waitMin,
		})
	}

	u, err := h.Auth.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		h.Limiter.Record(ctx, req.Email, ip, false)
		publishAudit(queue.SecurityEvent{Kind: queue.EventLoginFailure, Email: req.Email, IPAddress: ip})
		var fed *auth.FederatedLoginError
		switch {
		case errors.Is(err, auth.ErrInvalidCredentials):
			return jsonFail(c, http.StatusUnauthorized, "Invalid email or password")
		case errors.Is(err, auth.ErrAccountInactive):
			return jsonFail(c, http.StatusForbidden, "Your account has been deactivated. Please contact support.")
		case errors.As(err, &fed):
			provider := capitalize(fed.Provider)
			return jsonFail(c, http.StatusBadRequest,
				"This account uses "+provider+" login. Please use the \"Sign in with "+provider+"\" button.")
		default:
			c.Logger().Errorf("login failed: %v", err)
			return jsonFail(c, http.StatusServiceUnavailable, "Please try again later")
		}
	}
	h.Limiter.Record(ctx, req.Email, ip, true)

	info, err := h.Sessions.Create(ctx, u.ID, req.RememberMe, ip, c.Request().UserAgent())
	if err != nil {
		c.Logger().Errorf("session create failed: %v", err)
		return jsonFail(c, http.StatusInternalServerError, "Could not create session")
	}
	h.setSessionCookie(c, info)
	publishAudit(queue.SecurityEvent{Kind: queue.EventLoginSuccess, ActorID: u.ID, ActorName: u.FullName, Email: u.Email, IPAddress: ip})

	return jsonOK(c, http.StatusOK, echo.Map{
		"message": "Login successful!",
		"user": echo.Map{
			"id":             u.ID,
			"full_name":      u.FullName,
			"email":          u.Email,
			"email_verified": u.EmailVerified,
		},
		"session_token": info.Token,
		"redirect_url":  "/index.html",
	})
}

func (h *AuthHandler) loginBuiltIn(ctx context.Context, c echo.Context, req loginReq) error {
	acct, ok := auth.AuthenticateBuiltIn(req.Email, req.Password)
	if !ok {
		return jsonFail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	info, err := h.Sessions.CreateBuiltIn(acct, req.RememberMe)
	if err != nil {
		c.Logger().Errorf("built-in session create failed: %v", err)
		return jsonFail(c, http.StatusInternalServerError, "Could not create session")
	}

	// Built-in accounts resolve permissions through the same role
	// tables as everyone else; a missing database only costs them the
	// permission list, not the login.
	profile, err := h.Resolver.Resolve(ctx, info)
	if err != nil {
		c.Logger().Warnf("permissions for built-in account unavailable: %v", err)
		profile = &auth.AccessProfile{Map: map[string]bool{}, HasAdminAccess: auth.HasAdminAccess(nil, acct.UserType)}
	}

	h.setSessionCookie(c, info)
	publishAudit(queue.SecurityEvent{Kind: queue.EventLoginBuiltIn, ActorID: acct.ID, ActorName: acct.FullName, Email: acct.Email, IPAddress: c.RealIP()})

	return jsonOK(c, http.StatusOK, echo.Map{
		"message": "Login successful!",
		"user": echo.Map{
			"id":             acct.ID,
			"full_name":      acct.FullName,
			"email":          acct.Email,
			"email_verified": acct.EmailVerified,
			"user_type":      acct.UserType,
			"role":           acct.RoleName,
			"role_id":        acct.RoleID,
			"is_builtin":     true,
			"permissions":    profile.Permissions,
			"permissionMap":  profile.Map,
			"hasAdminAccess": profile.HasAdminAccess,
		},
		"session_token": info.Token,
		"redirect_url":  acct.RedirectURL(),
	})
}

// Register creates a persisted user with a double-hash credential and
// an email verification token. The account starts unverified.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return jsonFail(c, http.StatusBadRequest, "Invalid body")
	}
	if !h.validCSRF(c, req.CSRFToken) {
		return jsonFail(c, http.StatusBadRequest, "Invalid CSRF token")
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	switch {
	case req.FullName == "":
		return jsonFail(c, http.StatusBadRequest, "Full name is required")
	case req.Email == "":
		return jsonFail(c, http.StatusBadRequest, "Email is required")
	case req.Password == "":
		return jsonFail(c, http.StatusBadRequest, "Password is required")
	case !req.TermsAccepted:
		return jsonFail(c, http.StatusBadRequest, "You must accept the terms of use")
	case req.Password != req.ConfirmPassword:
		return jsonFail(c, http.StatusBadRequest, "Passwords do not match")
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return jsonFail(c, http.StatusBadRequest, "Invalid email format")
	}
	if ok, msg := auth.ValidatePasswordStrength(req.Password); !ok {
		return jsonFail(c, http.StatusBadRequest, msg)
	}

	hash, err := h.Hasher.Hash(req.Password, req.Email)
	if err != nil {
		c.Logger().Errorf("password hash failed: %v", err)
		return jsonFail(c, http.StatusInternalServerError, "Registration failed")
	}
	verificationToken, err := auth.RandomHex(32)
	if err != nil {
		return jsonFail(c, http.StatusInternalServerError, "Registration failed")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	uid, err := h.Users.Create(ctx, req.FullName, req.Email, hash, verificationToken)
	if err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return jsonFail(c, http.StatusConflict, "An account with this email already exists")
		}
		c.Logger().Errorf("create user failed: %v", err)
		return jsonFail(c, http.StatusInternalServerError, "Registration failed")
	}

	// Verification link delivery is the mailer's job.
	c.Logger().Infof("verification token for %s issued", req.Email)

	return jsonOK(c, http.StatusCreated, echo.Map{
		"message":               "Registration successful! Please check your email to verify your account.",
		"user_id":               uid,
		"verification_required": true,
	})
}

// VerifyEmail consumes a verification token from the query string.
func (h *AuthHandler) VerifyEmail(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return jsonFail(c, http.StatusBadRequest, "Verification token is required")
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	ok, err := h.Users.VerifyEmail(ctx, token)
	if err != nil {
		c.Logger().Errorf("verify email failed: %v", err)
		return jsonFail(c, http.StatusInternalServerError, "Verification failed")
	}
	if !ok {
		return jsonFail(c, http.StatusBadRequest, "Invalid or already used verification token")
	}
	return jsonOK(c, http.StatusOK, echo.Map{"message": "Email verified successfully!"})
}

// Logout destroys the current session. Idempotent: logging out twice,
// or with no session at all, still succeeds.
func (h *AuthHandler) Logout(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if info, ok := middleware.CurrentSession(c); ok {
		if err := h.Sessions.Destroy(ctx, info.Token); err != nil {
			c.Logger().Errorf("session destroy failed: %v", err)
		}
		publishAudit(queue.SecurityEvent{Kind: queue.EventLogout, ActorID: info.UserID, IPAddress: c.RealIP()})
	}
	h.clearSessionCookie(c)
	return jsonOK(c, http.StatusOK, echo.Map{"message": "Logout successful"})
}

// Me returns the authenticated profile: identity, resolved roles and
// permissions, the dual-keyed permission map and the derived admin
// flag. Visiting it also slides the session window forward.
func (h *AuthHandler) Me(c echo.Context) error {
	info, ok := middleware.CurrentSession(c)
	if !ok {
		return jsonFail(c, http.StatusUnauthorized, "Not authenticated")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	profile, err := h.Resolver.Resolve(ctx, info)
	if err != nil {
		c.Logger().Errorf("permission resolution failed: %v", err)
		return jsonFail(c, http.StatusServiceUnavailable, "Please try again later")
	}

	data := echo.Map{
		"id":             info.UserID,
		"isLoggedIn":     true,
		"isBuiltin":      info.IsBuiltIn,
		"roles":          profile.Roles,
		"permissions":    profile.Permissions,
		"permissionMap":  profile.Map,
		"hasAdminAccess": profile.HasAdminAccess,
	}

	if info.IsBuiltIn {
		if acct, ok := auth.FindBuiltInAccountByID(info.UserID); ok {
			data["full_name"] = acct.FullName
			data["email"] = acct.Email
			data["user_type"] = acct.UserType
			data["role"] = acct.RoleName
			data["role_id"] = acct.RoleID
		} else {
			data["full_name"] = info.FullName
			data["user_type"] = info.UserType
		}
	} else {
		u, err := h.Users.GetByID(ctx, info.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return jsonFail(c, http.StatusUnauthorized, "Not authenticated")
			}
			c.Logger().Errorf("load user failed: %v", err)
			return jsonFail(c, http.StatusServiceUnavailable, "Please try again later")
		}
		data["full_name"] = u.FullName
		data["email"] = u.Email
		data["email_verified"] = u.EmailVerified
		data["created_at"] = u.CreatedAt
		if u.LastLogin.Valid {
			data["last_login"] = u.LastLogin.Time
		}
		_ = h.Sessions.Refresh(ctx, info.Token)
	}

	return jsonOK(c, http.StatusOK, echo.Map{"data": data})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, info *auth.SessionInfo) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    info.Token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   c.IsTLS(),
		Expires:  info.ExpiresAt,
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
