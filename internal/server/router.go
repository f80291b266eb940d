package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/MarcoPoloResearchLab/decks/internal/auth"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/MarcoPoloResearchLab/decks/internal/preferences"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	profileIDContextKey      = "decks_profile_id"
	defaultProfileCookieName = "decks_profile"
	defaultHeartbeatInterval = 25 * time.Second
)

var (
	errMissingDeckService     = errors.New("deck service dependency required")
	errMissingTokenIssuer     = errors.New("viewer token issuer dependency required")
	errMissingSessionVerifier = errors.New("viewer session validator dependency required")
	errMissingPreferenceStore = errors.New("preference store dependency required")
	errMissingViewTracker     = errors.New("view tracker dependency required")
)

// ViewerTokenIssuer mints the token a viewer receives after the access gate.
type ViewerTokenIssuer interface {
	IssueViewerToken(linkID, email string) (string, time.Time, error)
}

// ViewerSessionValidator checks the viewer token on a request for one link.
type ViewerSessionValidator interface {
	CookieName() string
	ValidateRequest(r *http.Request, linkID string) (auth.ViewerClaims, error)
}

// ViewTracker accepts tracking events without blocking the request.
type ViewTracker interface {
	Track(event deck.ViewEventInput) bool
}

type Dependencies struct {
	DeckService       *deck.Service
	TokenIssuer       ViewerTokenIssuer
	Sessions          ViewerSessionValidator
	Preferences       preferences.Store
	Tracker           ViewTracker
	Realtime          *RealtimeDispatcher
	ProfileCookieName string
	AllowedOrigins    []string
	HeartbeatInterval time.Duration
	Logger            *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.DeckService == nil {
		return nil, errMissingDeckService
	}
	if deps.TokenIssuer == nil {
		return nil, errMissingTokenIssuer
	}
	if deps.Sessions == nil {
		return nil, errMissingSessionVerifier
	}
	if deps.Preferences == nil {
		return nil, errMissingPreferenceStore
	}
	if deps.Tracker == nil {
		return nil, errMissingViewTracker
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	realtime := deps.Realtime
	if realtime == nil {
		realtime = NewRealtimeDispatcher()
	}
	profileCookieName := deps.ProfileCookieName
	if profileCookieName == "" {
		profileCookieName = defaultProfileCookieName
	}
	heartbeat := deps.HeartbeatInterval
	if heartbeat <= 0 {
		heartbeat = defaultHeartbeatInterval
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(deps.AllowedOrigins))

	handler := &httpHandler{
		deckService:       deps.DeckService,
		tokens:            deps.TokenIssuer,
		sessions:          deps.Sessions,
		preferences:       deps.Preferences,
		tracker:           deps.Tracker,
		realtime:          realtime,
		profileCookieName: profileCookieName,
		heartbeatInterval: heartbeat,
		logger:            logger,
	}

	router.GET("/healthz", handler.handleHealth)

	api := router.Group("/api")
	api.GET("/catalog", handler.handleCatalog)
	api.GET("/deck", handler.handleEditorDeck)
	api.PUT("/deck/edits", handler.handleSaveEdit)
	api.POST("/deck/edits/batch", handler.handleSaveEditBatch)
	api.PUT("/deck/order", handler.handleSaveOrder)

	api.GET("/links", handler.handleListLinks)
	api.POST("/links", handler.handleCreateLink)
	api.POST("/links/:id/refresh", handler.handleRefreshLink)
	api.POST("/links/:id/disable", handler.handleDisableLink)
	api.POST("/links/:id/enable", handler.handleEnableLink)
	api.GET("/links/:id/analytics", handler.handleLinkAnalytics)
	api.GET("/links/:id/activity", handler.handleLinkActivity)
	api.GET("/links/:id/visitors", handler.handleLinkVisitors)
	api.GET("/analytics", handler.handleDashboardAnalytics)

	api.GET("/slides/:id/comments", handler.handleListComments)
	api.POST("/slides/:id/comments", handler.handleAddComment)
	api.GET("/comments/counts", handler.handleCommentCounts)
	api.DELETE("/comments", handler.handleClearComments)

	api.POST("/view/:id/access", handler.handleViewerAccess)
	api.GET("/view/:id", handler.handleViewerDeck)
	api.POST("/view/:id/track", handler.handleViewerTrack)

	profile := api.Group("/preferences")
	profile.Use(handler.assignProfile)
	profile.GET("", handler.handleListPreferences)
	profile.GET("/:key", handler.handleGetPreference)
	profile.PUT("/:key", handler.handleSetPreference)
	profile.DELETE("/:key", handler.handleDeletePreference)

	return router, nil
}

type httpHandler struct {
	deckService       *deck.Service
	tokens            ViewerTokenIssuer
	sessions          ViewerSessionValidator
	preferences       preferences.Store
	tracker           ViewTracker
	realtime          *RealtimeDispatcher
	profileCookieName string
	heartbeatInterval time.Duration
	logger            *zap.Logger
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) == 0 {
		config.AllowOriginFunc = func(string) bool { return true }
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondServiceError maps a deck service failure to a status and an error body.
// Internal failures carry the service error code so operators can find the log line.
func (h *httpHandler) respondServiceError(c *gin.Context, err error, fallback string) {
	var serviceErr *deck.ServiceError
	code := ""
	if errors.As(err, &serviceErr) {
		code = serviceErr.Code()
	}
	switch deck.KindOf(err) {
	case deck.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "code": code})
	case deck.KindNotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "code": code})
	case deck.KindUnavailable:
		c.JSON(http.StatusNotFound, gin.H{"error": "link_unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback, "code": code})
	}
}
