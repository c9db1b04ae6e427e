package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"advisoryhub/internal/pkg/response"
	"advisoryhub/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register creates a client account.
// @Summary		Register a client
// @Tags		Auth
// @Accept		json
// @Produce		json
// @Param		request	body	RegisterRequest	true	"email, password, full name"
// @Success		201	{object}	map[string]interface{}
// @Failure		400,409,500	{object}	map[string]interface{}
// @Router		/auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", errs)
		return
	}

	p, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			response.CustomError(c, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered")
			return
		}
		response.CustomError(c, http.StatusInternalServerError, "REGISTER_FAILED", "Failed to register")
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"user": toProfileResponse(p)})
}

// Login issues an access token.
// @Summary		Sign in
// @Tags		Auth
// @Accept		json
// @Produce		json
// @Param		request	body	LoginRequest	true	"credentials"
// @Success		200	{object}	map[string]interface{}
// @Failure		400,401,500	{object}	map[string]interface{}
// @Router		/auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", errs)
		return
	}

	res, err := h.service.SignIn(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.CustomError(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
			return
		}
		response.CustomError(c, http.StatusInternalServerError, "LOGIN_FAILED", "Failed to login")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user": toProfileResponse(res.Profile),
		"tokens": gin.H{
			"access_token": res.AccessToken,
			"expires_at":   res.Session.ExpiresAt,
		},
	})
}

// Logout revokes the bearer token.
// @Summary		Sign out
// @Tags		Auth
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Router		/auth/logout [POST]
func (h *Handler) Logout(c *gin.Context) {
	sess := CurrentSession(c)
	if sess == nil {
		response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	if err := h.service.SignOut(c.Request.Context(), sess); err != nil {
		response.CustomError(c, http.StatusInternalServerError, "LOGOUT_FAILED", "Failed to logout")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "signed_out"})
}

// GetMe returns the caller's profile.
// @Summary		Current profile
// @Tags		Auth
// @Security	BearerAuth
// @Success		200	{object}	map[string]interface{}
// @Failure		401,404	{object}	map[string]interface{}
// @Router		/users/me [GET]
func (h *Handler) GetMe(c *gin.Context) {
	sess := CurrentSession(c)
	if sess == nil {
		response.CustomError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
		return
	}
	p, err := h.service.CurrentProfile(c.Request.Context(), sess)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			response.CustomError(c, http.StatusNotFound, "NOT_FOUND", "User not found")
			return
		}
		response.CustomError(c, http.StatusInternalServerError, "PROFILE_FAILED", "Failed to load profile")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": toProfileResponse(p)})
}
