package favorite

import (
	"fmt"
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

// GetFavorites returns the caller's favorites joined with their listings.
// @Summary		List favorites
// @Description	Favorites whose listing was deleted are left out.
// @Tags		Favorites
// @Security	BearerAuth
// @Success		200	{object}	[]WithListing "Favorites"
// @Failure		401	{object}	map[string]interface{} "Authentication required"
// @Router		/favorites [GET]
func (h *Handler) GetFavorites(c *gin.Context) {
	favs, err := h.repo.ListWithListings(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, favs)
}

// AddFavorite saves a listing for the caller.
// @Summary		Add a favorite
// @Description	Adding twice returns the existing favorite.
// @Tags		Favorites
// @Security	BearerAuth
// @Param		jobId	path	string	true	"Listing id"
// @Success		201	{object}	Favorite "Favorite"
// @Failure		401	{object}	map[string]interface{} "Authentication required"
// @Router		/favorites/{jobId} [POST]
func (h *Handler) AddFavorite(c *gin.Context) {
	f, err := h.repo.Add(c.Request.Context(), middleware.UserID(c), c.Param("jobId"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, f)
}

// RemoveFavorite deletes one of the caller's favorites.
// @Summary		Remove a favorite
// @Tags		Favorites
// @Security	BearerAuth
// @Param		id	path	string	true	"Favorite id"
// @Success		200	{object}	map[string]interface{} "Removed"
// @Failure		404	{object}	map[string]interface{} "Favorite not found"
// @Router		/favorites/{id} [DELETE]
func (h *Handler) RemoveFavorite(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	f, err := h.repo.Get(ctx, id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	if f.UserID != middleware.UserID(c) {
		response.FromError(c, fmt.Errorf("favorite %s: %w", id, domain.ErrNotFound))
		return
	}

	if err := h.repo.Remove(ctx, id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// CheckFavorite handles GET /favorites/:jobId/check
func (h *Handler) CheckFavorite(c *gin.Context) {
	ok, err := h.repo.IsFavorited(c.Request.Context(), middleware.UserID(c), c.Param("jobId"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"isFavorited": ok})
}
