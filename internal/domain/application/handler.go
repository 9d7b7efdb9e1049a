package application

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/middleware"
	"jobmarket/internal/pkg/response"
)

type Handler struct {
	coordinator *Coordinator
}

func NewHandler(coordinator *Coordinator) *Handler {
	return &Handler{coordinator: coordinator}
}

// Apply adds the caller to a listing's applicants.
// @Summary		Apply to a listing
// @Description	Idempotent: a repeated call answers 200 with alreadyApplied=true and sends no second notification.
// @Tags		Applications
// @Security	BearerAuth
// @Param		id	path	string	true	"Listing id"
// @Success		201	{object}	Result "Applied"
// @Success		200	{object}	Result "Already applied"
// @Failure		409	{object}	map[string]interface{} "Own listing or listing not open"
// @Failure		422	{object}	map[string]interface{} "Profile incomplete"
// @Router		/listings/{id}/apply [POST]
func (h *Handler) Apply(c *gin.Context) {
	res, err := h.coordinator.Apply(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyApplied {
		status = http.StatusOK
	}
	response.Success(c, status, res)
}

// Mine handles GET /applications/mine
func (h *Handler) Mine(c *gin.Context) {
	ls, err := h.coordinator.MyApplications(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ls)
}

// Applicants returns the profiles that applied to a listing.
// @Summary		List applicants
// @Tags		Applications
// @Security	BearerAuth
// @Param		id	path	string	true	"Listing id"
// @Success		200	{object}	[]profile.Profile "Applicant profiles"
// @Failure		403	{object}	map[string]interface{} "Not the owner"
// @Failure		404	{object}	map[string]interface{} "Listing not found"
// @Router		/listings/{id}/applicants [GET]
func (h *Handler) Applicants(c *gin.Context) {
	ps, err := h.coordinator.Applicants(c.Request.Context(), c.Param("id"), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ps)
}
