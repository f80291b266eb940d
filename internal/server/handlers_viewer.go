package server

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/auth"
	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type viewerAccessRequestPayload struct {
	Email string `json:"email"`
}

type viewerAccessResponsePayload struct {
	Token     string `json:"token"`
	Email     string `json:"email"`
	ExpiresAt int64  `json:"expires_at_s"`
}

type viewerDeckResponsePayload struct {
	LinkID string          `json:"link_id"`
	Label  string          `json:"label"`
	Slides []catalog.Slide `json:"slides"`
}

type trackRequestPayload struct {
	SlideID         string   `json:"slide_id"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

func (h *httpHandler) handleViewerAccess(c *gin.Context) {
	var request viewerAccessRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.Email) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	linkID := c.Param("id")
	visitor, err := h.deckService.RegisterVisitor(c.Request.Context(), linkID, request.Email)
	if err != nil {
		h.respondServiceError(c, err, "access_failed")
		return
	}

	token, expiresAt, err := h.tokens.IssueViewerToken(visitor.LinkID, visitor.Email)
	if err != nil {
		h.logger.Error("failed to issue viewer token", zap.String("link_id", visitor.LinkID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token_issue_failed"})
		return
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     h.sessions.CookieName(),
		Value:    token,
		Path:     "/api/view/" + visitor.LinkID,
		Expires:  expiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	h.realtime.Publish(RealtimeMessage{
		LinkID:    visitor.LinkID,
		EventType: RealtimeEventVisitor,
		Email:     visitor.Email,
		Timestamp: time.Unix(visitor.LastSeenAtSeconds, 0).UTC(),
	})

	c.JSON(http.StatusOK, viewerAccessResponsePayload{
		Token:     token,
		Email:     visitor.Email,
		ExpiresAt: expiresAt.Unix(),
	})
}

func (h *httpHandler) handleViewerDeck(c *gin.Context) {
	linkID := c.Param("id")
	if _, ok := h.authorizeViewer(c, linkID); !ok {
		return
	}
	viewerDeck, err := h.deckService.ViewerDeck(c.Request.Context(), linkID)
	if err != nil {
		h.respondServiceError(c, err, "view_failed")
		return
	}
	if !viewerDeck.Available || viewerDeck.Link == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "link_unavailable"})
		return
	}
	slides := viewerDeck.Slides
	if slides == nil {
		slides = []catalog.Slide{}
	}
	c.JSON(http.StatusOK, viewerDeckResponsePayload{
		LinkID: viewerDeck.Link.LinkID,
		Label:  viewerDeck.Link.Label,
		Slides: slides,
	})
}

func (h *httpHandler) handleViewerTrack(c *gin.Context) {
	linkID := c.Param("id")
	claims, ok := h.authorizeViewer(c, linkID)
	if !ok {
		return
	}
	var request trackRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || strings.TrimSpace(request.SlideID) == "" || request.DurationSeconds == nil || *request.DurationSeconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	if err := h.deckService.CheckLinkAvailable(c.Request.Context(), claims.LinkID); err != nil {
		h.respondServiceError(c, err, "track_failed")
		return
	}

	now := time.Now().UTC()
	event := deck.ViewEventInput{
		LinkID:          claims.LinkID,
		Email:           claims.Email,
		SlideID:         strings.TrimSpace(request.SlideID),
		DurationSeconds: *request.DurationSeconds,
		RecordedAt:      now.Unix(),
	}
	accepted := h.tracker.Track(event)
	if accepted {
		h.realtime.Publish(RealtimeMessage{
			LinkID:          event.LinkID,
			EventType:       RealtimeEventView,
			Email:           event.Email,
			SlideID:         event.SlideID,
			DurationSeconds: event.DurationSeconds,
			Timestamp:       now,
		})
	}
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
}

func (h *httpHandler) authorizeViewer(c *gin.Context, linkID string) (auth.ViewerClaims, bool) {
	claims, err := h.sessions.ValidateRequest(c.Request, linkID)
	if err != nil {
		if errors.Is(err, auth.ErrExpiredSessionToken) || errors.Is(err, auth.ErrMissingSessionToken) {
			h.logger.Info("viewer token rejected", zap.String("link_id", linkID), zap.Error(err))
		} else {
			h.logger.Warn("viewer token rejected", zap.String("link_id", linkID), zap.Error(err))
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return auth.ViewerClaims{}, false
	}
	return claims, true
}
