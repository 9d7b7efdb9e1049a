package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register creates a jobseeker or employer account and signs it in.
// @Summary		Register
// @Tags		Auth
// @Param		request	body	RegisterRequest	true	"Account data"
// @Success		201	{object}	Result "Account and token"
// @Failure		400	{object}	map[string]interface{} "Validation failed"
// @Failure		409	{object}	map[string]interface{} "Email already registered"
// @Router		/auth/register [POST]
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrEmailAlreadyExists) {
			response.Error(c, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered")
			return
		}
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, res)
}

// Login exchanges credentials for an access token.
// @Summary		Login
// @Tags		Auth
// @Param		request	body	LoginRequest	true	"Credentials"
// @Success		200	{object}	Result "Account and token"
// @Failure		401	{object}	map[string]interface{} "Invalid credentials"
// @Router		/auth/login [POST]
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	res, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			response.Error(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Email or password is incorrect")
			return
		}
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func RegisterRoutes(v1 *gin.RouterGroup, h *Handler) {
	authGroup := v1.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)
	}
}
