package server

import (
	"errors"
	"net/http"

	"github.com/MarcoPoloResearchLab/decks/internal/preferences"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const profileCookieMaxAge = 365 * 24 * 60 * 60

type preferenceRequestPayload struct {
	Value *string `json:"value"`
}

// assignProfile reads the anonymous profile cookie, issuing a new profile id when the
// cookie is absent or malformed.
func (h *httpHandler) assignProfile(c *gin.Context) {
	profileID := ""
	if cookie, err := c.Request.Cookie(h.profileCookieName); err == nil {
		if parsed, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
			profileID = parsed.String()
		}
	}
	if profileID == "" {
		generated, err := uuid.NewV7()
		if err != nil {
			h.logger.Error("failed to generate profile id", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "profile_unavailable"})
			return
		}
		profileID = generated.String()
		http.SetCookie(c.Writer, &http.Cookie{
			Name:     h.profileCookieName,
			Value:    profileID,
			Path:     "/",
			MaxAge:   profileCookieMaxAge,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	c.Set(profileIDContextKey, profileID)
	c.Next()
}

func (h *httpHandler) handleListPreferences(c *gin.Context) {
	values, err := h.preferences.All(c.Request.Context(), c.GetString(profileIDContextKey))
	if err != nil {
		h.respondPreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": values})
}

func (h *httpHandler) handleGetPreference(c *gin.Context) {
	key := c.Param("key")
	value, err := h.preferences.Get(c.Request.Context(), c.GetString(profileIDContextKey), key)
	if err != nil {
		h.respondPreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": value})
}

func (h *httpHandler) handleSetPreference(c *gin.Context) {
	var request preferenceRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.Value == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	key, err := preferences.ValidateKey(c.Param("key"))
	if err != nil {
		h.respondPreferenceError(c, err)
		return
	}
	if err := h.preferences.Set(c.Request.Context(), c.GetString(profileIDContextKey), key, *request.Value); err != nil {
		h.respondPreferenceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"key": key, "value": *request.Value})
}

func (h *httpHandler) handleDeletePreference(c *gin.Context) {
	if err := h.preferences.Delete(c.Request.Context(), c.GetString(profileIDContextKey), c.Param("key")); err != nil {
		h.respondPreferenceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *httpHandler) respondPreferenceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, preferences.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not_found"})
	case errors.Is(err, preferences.ErrInvalidKey), errors.Is(err, preferences.ErrInvalidProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_key"})
	case errors.Is(err, preferences.ErrValueTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "value_too_large"})
	default:
		h.logger.Error("preference store failure", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "preferences_unavailable"})
	}
}
