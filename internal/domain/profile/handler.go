package profile

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/domain"
	"jobmarket/internal/middleware"
	"jobmarket/internal/pkg/response"
	"jobmarket/internal/pkg/validator"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// GetMe returns the caller's profile.
// @Summary		Get my profile
// @Tags		Users
// @Security	BearerAuth
// @Success		200	{object}	Profile "Profile"
// @Failure		401	{object}	map[string]interface{} "Authentication required"
// @Router		/users/me [GET]
func (h *Handler) GetMe(c *gin.Context) {
	p, err := h.repo.GetProfile(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}

// UpdateMe changes the caller's display name and phone.
// @Summary		Update my profile
// @Description	A profile needs both to apply to listings.
// @Tags		Users
// @Security	BearerAuth
// @Param		request	body	UpdateInput	true	"Profile fields"
// @Success		200	{object}	Profile "Updated profile"
// @Failure		400	{object}	map[string]interface{} "Validation failed"
// @Router		/users/me [PATCH]
func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	if errs := validator.Validate(req); errs != nil {
		response.FromError(c, &domain.ValidationError{Fields: errs})
		return
	}

	p, err := h.repo.Update(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, p)
}
