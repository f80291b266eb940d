package server

import (
	"encoding/json"
	"net/http"

	"github.com/MarcoPoloResearchLab/decks/internal/catalog"
	"github.com/MarcoPoloResearchLab/decks/internal/deck"
	"github.com/gin-gonic/gin"
)

type slidesResponsePayload struct {
	Slides []catalog.Slide `json:"slides"`
}

type editorDeckResponsePayload struct {
	Slides         []catalog.Slide `json:"slides"`
	GraveyardIndex int             `json:"graveyard_index"`
}

type editRequestPayload struct {
	SlideID string          `json:"slide_id"`
	Field   string          `json:"field"`
	Value   json.RawMessage `json:"value"`
}

type editBatchRequestPayload struct {
	Edits []editRequestPayload `json:"edits"`
}

type editResponsePayload struct {
	SlideID          string `json:"slide_id"`
	Field            string `json:"field"`
	UpdatedAtSeconds int64  `json:"updated_at_s"`
}

type orderRequestPayload struct {
	SlideIDs       []string `json:"slide_ids"`
	GraveyardIndex *int     `json:"graveyard_index"`
}

type orderResponsePayload struct {
	SlideIDs         []string `json:"slide_ids"`
	GraveyardIndex   int      `json:"graveyard_index"`
	UpdatedAtSeconds int64    `json:"updated_at_s"`
}

func (h *httpHandler) handleCatalog(c *gin.Context) {
	c.JSON(http.StatusOK, slidesResponsePayload{Slides: h.deckService.Catalog()})
}

func (h *httpHandler) handleEditorDeck(c *gin.Context) {
	editorDeck, err := h.deckService.EditorDeck(c.Request.Context())
	if err != nil {
		h.respondServiceError(c, err, "deck_unavailable")
		return
	}
	c.JSON(http.StatusOK, editorDeckResponsePayload{
		Slides:         editorDeck.Slides,
		GraveyardIndex: editorDeck.GraveyardIndex,
	})
}

func (h *httpHandler) handleSaveEdit(c *gin.Context) {
	var request editRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	input, err := toEditInput(request)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_value"})
		return
	}
	saved, err := h.deckService.SaveEdit(c.Request.Context(), input)
	if err != nil {
		h.respondServiceError(c, err, "save_failed")
		return
	}
	c.JSON(http.StatusOK, toEditResponse(saved))
}

func (h *httpHandler) handleSaveEditBatch(c *gin.Context) {
	var request editBatchRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || len(request.Edits) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	inputs := make([]deck.EditInput, 0, len(request.Edits))
	for _, edit := range request.Edits {
		input, err := toEditInput(edit)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_value"})
			return
		}
		inputs = append(inputs, input)
	}
	saved, err := h.deckService.SaveEdits(c.Request.Context(), inputs)
	if err != nil {
		h.respondServiceError(c, err, "save_failed")
		return
	}
	response := make([]editResponsePayload, 0, len(saved))
	for _, edit := range saved {
		response = append(response, toEditResponse(edit))
	}
	c.JSON(http.StatusOK, gin.H{"edits": response})
}

func (h *httpHandler) handleSaveOrder(c *gin.Context) {
	var request orderRequestPayload
	if err := c.ShouldBindJSON(&request); err != nil || request.SlideIDs == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}
	graveyardIndex := -1
	if request.GraveyardIndex != nil {
		graveyardIndex = *request.GraveyardIndex
	}
	order, err := h.deckService.SaveOrder(c.Request.Context(), request.SlideIDs, graveyardIndex)
	if err != nil {
		h.respondServiceError(c, err, "save_failed")
		return
	}
	c.JSON(http.StatusOK, orderResponsePayload{
		SlideIDs:         order.SlideIDs,
		GraveyardIndex:   order.GraveyardIndex,
		UpdatedAtSeconds: order.UpdatedAtSeconds,
	})
}

// An absent value stays nil so the service rejects it as missing.
func toEditInput(request editRequestPayload) (deck.EditInput, error) {
	input := deck.EditInput{SlideID: request.SlideID, FieldPath: request.Field}
	if len(request.Value) == 0 {
		return input, nil
	}
	var value any
	if err := json.Unmarshal(request.Value, &value); err != nil {
		return deck.EditInput{}, err
	}
	input.Value = value
	return input, nil
}

func toEditResponse(edit deck.SlideEdit) editResponsePayload {
	return editResponsePayload{
		SlideID:          edit.SlideID,
		Field:            edit.FieldPath,
		UpdatedAtSeconds: edit.UpdatedAtSeconds,
	}
}
