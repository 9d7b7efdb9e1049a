package feed

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"jobmarket/internal/domain/listing"
	"jobmarket/internal/pkg/response"
	"jobmarket/internal/pkg/wsstream"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Stream handles GET /ws/listings?limit=&city=... and pushes a new state
// whenever the visible listings may have changed.
func (h *Handler) Stream(c *gin.Context) {
	var opts Options
	if err := c.ShouldBindQuery(&opts.Filter); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid filter")
		return
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}

	conn, err := wsstream.Upgrade(c.Writer, c.Request)
	if err != nil {
		return
	}

	ctx := c.Request.Context()
	feed, err := h.service.Open(ctx, opts)
	if err != nil {
		wsstream.CloseWithError(conn, err)
		return
	}
	defer feed.Close()

	states, cancel := feed.Updates()
	defer cancel()

	msgs := make(chan wsstream.Event, 1)
	go func() {
		defer close(msgs)
		for s := range states {
			if s.Err != nil {
				wsstream.Offer(msgs, wsstream.ErrorMessage(s.Err))
				continue
			}
			wsstream.Offer(msgs, wsstream.Event{Type: "listings", Payload: s})
		}
	}()

	wsstream.Stream(ctx, conn, msgs)
}

func RegisterRoutes(ws *gin.RouterGroup, h *Handler) {
	ws.GET("/listings", h.Stream)
}

var _ Source = (*listing.Repository)(nil)
