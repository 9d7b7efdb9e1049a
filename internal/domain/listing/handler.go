package listing

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/domain"
	"jobmarket/internal/middleware"
	"jobmarket/internal/pkg/response"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// List returns approved, active listings matching the query filter.
// @Summary		List open listings
// @Description	Public. Filters are ANDed; results are newest first.
// @Tags		Listings
// @Param		city	query	string	false	"City id"
// @Param		district	query	string	false	"District"
// @Param		jobType	query	string	false	"Job type id"
// @Param		workPreference	query	string	false	"Work preference id"
// @Success		200	{object}	[]Listing "Visible listings"
// @Failure		400	{object}	map[string]interface{} "Invalid filter"
// @Failure		503	{object}	map[string]interface{} "Store unavailable"
// @Router		/listings [GET]
func (h *Handler) List(c *gin.Context) {
	var f Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid filter")
		return
	}

	ls, err := h.repo.GetApprovedActiveListings(c.Request.Context(), f)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ls)
}

// Get returns one listing. Listings outside the public feed are only
// shown to their employer and admins.
// @Summary		Get a listing
// @Tags		Listings
// @Security	BearerAuth
// @Param		id	path	string	true	"Listing id"
// @Success		200	{object}	Listing "Listing"
// @Failure		401	{object}	map[string]interface{} "Authentication required"
// @Failure		404	{object}	map[string]interface{} "Listing not found or hidden"
// @Router		/listings/{id} [GET]
func (h *Handler) Get(c *gin.Context) {
	l, err := h.repo.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.FromError(c, err)
		return
	}

	if !l.IsVisible() && l.EmployerID != middleware.UserID(c) && !h.isAdmin(c) {
		response.FromError(c, domain.ErrNotFound)
		return
	}
	response.Success(c, http.StatusOK, l)
}

func (h *Handler) isAdmin(c *gin.Context) bool {
	role, err := h.repo.roles.RoleOf(c.Request.Context(), middleware.UserID(c))
	return err == nil && isAdmin(role)
}

// Mine lists the caller's own listings in every moderation state.
// @Summary		List my listings
// @Tags		Listings
// @Security	BearerAuth
// @Success		200	{object}	[]Listing "Employer listings"
// @Failure		401	{object}	map[string]interface{} "Authentication required"
// @Router		/listings/mine [GET]
func (h *Handler) Mine(c *gin.Context) {
	ls, err := h.repo.ListByEmployer(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ls)
}

// Create submits a listing for moderation.
// @Summary		Create a listing
// @Description	New listings start pending and stay out of the feed until an admin approves them.
// @Tags		Listings
// @Security	BearerAuth
// @Param		request	body	Draft	true	"Listing attributes"
// @Success		201	{object}	Listing "Created listing"
// @Failure		400	{object}	map[string]interface{} "Validation failed"
// @Failure		403	{object}	map[string]interface{} "Employers and admins only"
// @Router		/listings [POST]
func (h *Handler) Create(c *gin.Context) {
	var d Draft
	if err := c.ShouldBindJSON(&d); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}

	l, err := h.repo.CreateListing(c.Request.Context(), d, middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, l)
}

// Update edits listing attributes. Unknown keys such as
// moderationStatus or applicants are rejected.
// @Summary		Edit a listing
// @Tags		Listings
// @Security	BearerAuth
// @Param		id	path	string	true	"Listing id"
// @Param		request	body	Patch	true	"Changed attributes"
// @Success		200	{object}	map[string]interface{} "Updated"
// @Failure		400	{object}	map[string]interface{} "Validation failed"
// @Failure		403	{object}	map[string]interface{} "Not the owner"
// @Failure		404	{object}	map[string]interface{} "Listing not found"
// @Router		/listings/{id} [PATCH]
func (h *Handler) Update(c *gin.Context) {
	var p Patch
	dec := json.NewDecoder(c.Request.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	id := c.Param("id")
	if err := h.repo.UpdateListing(ctx, id, p, middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}

	l, err := h.repo.Get(ctx, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, l)
}

type setActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SetActive pauses or resumes a listing.
// @Summary		Toggle a listing
// @Tags		Listings
// @Security	BearerAuth
// @Param		id	path	string	true	"Listing id"
// @Param		request	body	setActiveRequest	true	"isActive flag"
// @Success		200	{object}	map[string]interface{} "Updated"
// @Failure		403	{object}	map[string]interface{} "Not the owner"
// @Failure		404	{object}	map[string]interface{} "Listing not found"
// @Router		/listings/{id}/active [PATCH]
func (h *Handler) SetActive(c *gin.Context) {
	var req setActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "active is required")
		return
	}

	if err := h.repo.SetActive(c.Request.Context(), c.Param("id"), *req.Active, middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "isActive": *req.Active})
}

// Delete removes a listing. Its favorites and notifications are kept.
// @Summary		Delete a listing
// @Tags		Listings
// @Security	BearerAuth
// @Param		id	path	string	true	"Listing id"
// @Success		200	{object}	map[string]interface{} "Deleted"
// @Failure		403	{object}	map[string]interface{} "Not the owner"
// @Failure		404	{object}	map[string]interface{} "Listing not found"
// @Router		/listings/{id} [DELETE]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.repo.DeleteListing(c.Request.Context(), c.Param("id"), middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// Queue lists listings by moderation status for admins.
// @Summary		Moderation queue
// @Tags		Admin - Listings
// @Security	BearerAuth
// @Param		status	query	string	false	"pending, approved or rejected"	default(pending)
// @Success		200	{object}	[]Listing "Listings in that state"
// @Failure		403	{object}	map[string]interface{} "Admins only"
// @Router		/admin/listings [GET]
func (h *Handler) Queue(c *gin.Context) {
	status := Status(c.DefaultQuery("status", string(StatusPending)))
	ls, err := h.repo.ListByStatus(c.Request.Context(), status, middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ls)
}

type moderationRequest struct {
	Status Status `json:"status" binding:"required"`
}

// Moderate approves or rejects a listing.
// @Summary		Moderate a listing
// @Description	Pending listings can be approved or rejected; approved and rejected can swap. Nothing returns to pending.
// @Tags		Admin - Listings
// @Security	BearerAuth
// @Param		id	path	string	true	"Listing id"
// @Param		request	body	moderationRequest	true	"Target status"
// @Success		200	{object}	map[string]interface{} "New status"
// @Failure		400	{object}	map[string]interface{} "Invalid transition"
// @Failure		403	{object}	map[string]interface{} "Admins only"
// @Failure		404	{object}	map[string]interface{} "Listing not found"
// @Router		/admin/listings/{id}/moderation [PATCH]
func (h *Handler) Moderate(c *gin.Context) {
	var req moderationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "status is required")
		return
	}

	if err := h.repo.SetModerationStatus(c.Request.Context(), c.Param("id"), req.Status, middleware.UserID(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"id": c.Param("id"), "moderationStatus": req.Status})
}
