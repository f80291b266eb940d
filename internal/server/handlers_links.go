package server

import (
	"io"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/analytics"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type createLinkRequestPayload struct {
	Label string `json:"label"`
}

type linkResponsePayload struct {
	LinkID           string   `json:"link_id"`
	Label            string   `json:"label"`
	CreatedAtSeconds int64    `json:"created_at_s"`
	UpdatedAtSeconds int64    `json:"updated_at_s"`
	Disabled         bool     `json:"disabled"`
	Snapshot         []string `json:"snapshot"`
	Visitors         int64    `json:"visitors"`
}

type visitorResponsePayload struct {
	Email              string `json:"email"`
	FirstSeenAtSeconds int64  `json:"first_seen_at_s"`
	LastSeenAtSeconds  int64  `json:"last_seen_at_s"`
}

type realtimeEventPayload struct {
	LinkID          string  `json:"linkId"`
	Email           string  `json:"email,omitempty"`
	SlideID         string  `json:"slideId,omitempty"`
	DurationSeconds float64 `json:"durationSeconds,omitempty"`
	Timestamp       string  `json:"timestamp"`
}

func (h *httpHandler) handleListLinks(c *gin.Context) {
	overviews, err := h.deckService.ListShareLinks(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "list_failed")
		return
	}
	links := make([]linkResponsePayload, 0, len(overviews))
	for _, overview := range overviews {
		links = append(links, toLinkResponse(overview.Link, overview.Visitors))
	}
	c.JSON(http.StatusOK, gin.H{"links": links})
}

func (h *httpHandler) handleCreateLink(c *gin.Context) {
	var request createLinkRequestPayload
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&request); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
	}
	link, err := h.deckService.CreateShareLink(c.Request.Context(), request.Label)
	if err != nil {
		h.respondServiceError(c, err, "create_failed")
		return
	}
	c.JSON(http.StatusCreated, toLinkResponse(link, 0))
}

func (h *httpHandler) handleRefreshLink(c *gin.Context) {
	link, err := h.deckService.RefreshShareLink(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "refresh_failed")
		return
	}
	c.JSON(http.StatusOK, toLinkResponse(link, 0))
}

func (h *httpHandler) handleDisableLink(c *gin.Context) {
	h.setLinkDisabled(c, true)
}

func (h *httpHandler) handleEnableLink(c *gin.Context) {
	h.setLinkDisabled(c, false)
}

func (h *httpHandler) setLinkDisabled(c *gin.Context, disabled bool) {
	link, err := h.deckService.SetShareLinkDisabled(c.Request.Context(), c.Param("id"), disabled)
	if err != nil {
		h.respondServiceError(c, err, "update_failed")
		return
	}
	c.JSON(http.StatusOK, toLinkResponse(link, 0))
}

func (h *httpHandler) handleLinkAnalytics(c *gin.Context) {
	summary, err := h.deckService.LinkAnalytics(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "analytics_failed")
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *httpHandler) handleLinkVisitors(c *gin.Context) {
	visitors, err := h.deckService.LinkVisitors(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "list_failed")
		return
	}
	response := make([]visitorResponsePayload, 0, len(visitors))
	for _, visitor := range visitors {
		response = append(response, visitorResponsePayload{
			Email:              visitor.Email,
			FirstSeenAtSeconds: visitor.FirstSeenAtSeconds,
			LastSeenAtSeconds:  visitor.LastSeenAtSeconds,
		})
	}
	c.JSON(http.StatusOK, gin.H{"link_id": c.Param("id"), "visitors": response})
}

func (h *httpHandler) handleDashboardAnalytics(c *gin.Context) {
	summaries, err := h.deckService.DashboardAnalytics(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "analytics_failed")
		return
	}
	if summaries == nil {
		summaries = []analytics.Summary{}
	}
	c.JSON(http.StatusOK, gin.H{"links": summaries})
}

// handleLinkActivity streams live viewer events for one link as server-sent events.
func (h *httpHandler) handleLinkActivity(c *gin.Context) {
	linkID, err := deck.NewLinkID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_link_id"})
		return
	}

	ctx := c.Request.Context()
	stream, cleanup := h.realtime.Subscribe(ctx, linkID.String())
	defer cleanup()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	h.logger.Debug("activity stream opened", zap.String("link_id", linkID.String()))
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case message, ok := <-stream:
			if !ok {
				return false
			}
			c.SSEvent(message.EventType, toRealtimeEventPayload(message))
			return true
		case <-heartbeat.C:
			c.SSEvent(realtimeEventHeartbeat, gin.H{"source": realtimeSourceBackend})
			return true
		}
	})
}

func toLinkResponse(link deck.ShareLink, visitors int64) linkResponsePayload {
	snapshot := link.Snapshot
	if snapshot == nil {
		snapshot = []string{}
	}
	return linkResponsePayload{
		LinkID:           link.LinkID,
		Label:            link.Label,
		CreatedAtSeconds: link.CreatedAtSeconds,
		UpdatedAtSeconds: link.UpdatedAtSeconds,
		Disabled:         link.Disabled,
		Snapshot:         snapshot,
		Visitors:         visitors,
	}
}

func toRealtimeEventPayload(message RealtimeMessage) realtimeEventPayload {
	return realtimeEventPayload{
		LinkID:          message.LinkID,
		Email:           message.Email,
		SlideID:         message.SlideID,
		DurationSeconds: message.DurationSeconds,
		Timestamp:       message.Timestamp.UTC().Format(time.RFC3339),
	}
}
