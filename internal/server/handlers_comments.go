package server

import (
	"net/http"

	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/gin-gonic/gin"
)

type commentRequestPayload struct {
	Author string `json:"author"`
	Text   string `json:"text"`
}

type commentResponsePayload struct {
	CommentID        string `json:"comment_id"`
	SlideID          string `json:"slide_id"`
	Author           string `json:"author"`
	Text             string `json:"text"`
	CreatedAtSeconds int64  `json:"created_at_s"`
}

func (h *httpHandler) handleListComments(c *gin.Context) {
	comments, err := h.deckService.ListComments(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.respondServiceError(c, err, "list_failed")
		return
	}
	response := make([]commentResponsePayload, 0, len(comments))
	for _, comment := range comments {
		response = append(response, toCommentResponse(comment))
	}
	c.JSON(http.StatusOK, gin.H{"comments": response})
}

func (h *httpHandler) handleAddComment(c *gin.Context) {
	var request commentRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	comment, err := h.deckService.AddComment(c.Request.Context(), deck.CommentInput{
		SlideID: c.Param("id"),
		Author:  request.Author,
		Text:    request.Text,
	})
	if err != nil {
		h.respondServiceError(c, err, "save_failed")
		return
	}
	c.JSON(http.StatusCreated, toCommentResponse(comment))
}

func (h *httpHandler) handleCommentCounts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"counts": h.deckService.CommentCounts(c.Request.Context())})
}

func (h *httpHandler) handleClearComments(c *gin.Context) {
	removed, err := h.deckService.ClearComments(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "clear_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

func toCommentResponse(comment deck.Comment) commentResponsePayload {
	return commentResponsePayload{
		CommentID:        comment.CommentID,
		SlideID:          comment.SlideID,
		Author:           comment.Author,
		Text:             comment.Text,
		CreatedAtSeconds: comment.CreatedAtSeconds,
	}
}
