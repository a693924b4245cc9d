package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/floroz/bidout/internal/domain/users"
)

type AuthHandler struct {
	accounts AccountService
	logger   *slog.Logger
}

func NewAuthHandler(accounts AccountService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, logger: logger}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	user, err := h.accounts.Register(c.Request.Context(), users.RegisterCommand{
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          req.Email,
		Password:       req.Password,
		TermsAgreement: *req.TermsAgreement,
	})
	if err != nil {
		writeError(c, h.logger, err)
		return
	}

	respond(c, http.StatusCreated, "Registration successful", emailRequest{Email: user.Email})
}

// VerifyEmail handles POST /auth/verify-email
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req verifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	already, err := h.accounts.VerifyEmail(c.Request.Context(), req.Email, strconv.Itoa(req.OTP))
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if already {
		respond(c, http.StatusOK, "Email already verified", nil)
		return
	}
	respond(c, http.StatusOK, "Account verification successful", nil)
}

// ResendVerificationEmail handles POST /auth/resend-verification-email
func (h *AuthHandler) ResendVerificationEmail(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	already, err := h.accounts.ResendVerificationEmail(c.Request.Context(), req.Email)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	if already {
		respond(c, http.StatusOK, "Email already verified", nil)
		return
	}
	respond(c, http.StatusOK, "Verification email sent", nil)
}

// SendPasswordResetOTP handles POST /auth/send-password-reset-otp
func (h *AuthHandler) SendPasswordResetOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	if err := h.accounts.SendPasswordResetOTP(c.Request.Context(), req.Email); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Password otp sent", nil)
}

// SetNewPassword handles POST /auth/set-new-password
func (h *AuthHandler) SetNewPassword(c *gin.Context) {
	var req setNewPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	err := h.accounts.SetNewPassword(c.Request.Context(), req.Email, strconv.Itoa(req.OTP), req.Password)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Password reset successful", nil)
}

// Login handles POST /auth/login. A guest caller's watchlist moves to the
// user.
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	cmd := users.LoginCommand{Email: req.Email, Password: req.Password}
	if client := clientFrom(c); !client.Authenticated && client.ID != uuid.Nil {
		cmd.GuestID = client.ID
	}

	tokens, err := h.accounts.Login(c.Request.Context(), cmd)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Login successful", tokensResponse{Access: tokens.Access, Refresh: tokens.Refresh})
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, bindError(err))
		return
	}

	tokens, err := h.accounts.Refresh(c.Request.Context(), req.Refresh)
	if err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusCreated, "Tokens refresh successful", tokensResponse{Access: tokens.Access, Refresh: tokens.Refresh})
}

// Logout handles GET /auth/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.accounts.Logout(c.Request.Context(), clientFrom(c).ID); err != nil {
		writeError(c, h.logger, err)
		return
	}
	respond(c, http.StatusOK, "Logout successful", nil)
}
