package handlers

import (
	"encoding/hex"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/models"
	"github.com/RozoAI/rozo-intents/utils"
)

// CreateIntent handles the creation of a new intent
func (s *Server) CreateIntent(c *gin.Context) {
	var req models.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateIntentRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	params, err := toCreateParams(&req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := s.intentService.CreateIntent(c.Request.Context(), params)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, intent.ToResponse())
}

// GetIntent handles retrieving an intent by ID
func (s *Server) GetIntent(c *gin.Context) {
	id := c.Param("id")
	if !utils.IsValidBytes32(id) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid intent ID format"})
		return
	}

	intentID, err := codec.HexToBytes32(id)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	intent, err := s.intentService.GetIntent(c.Request.Context(), intentID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, intent.ToResponse())
}

// ListIntents handles retrieving intents with optional status filter and
// pagination
func (s *Server) ListIntents(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit parameter"})
		return
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid offset parameter"})
		return
	}

	status := c.Query("status")

	intents, err := s.intentService.ListIntents(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	if status != "" {
		var filtered []*models.Intent
		for _, intent := range intents {
			if string(intent.Status) == status {
				filtered = append(filtered, intent)
			}
		}
		intents = filtered
	}

	start := offset
	end := offset + limit
	if start >= len(intents) {
		c.JSON(http.StatusOK, []*models.IntentResponse{})
		return
	}
	if end > len(intents) {
		end = len(intents)
	}

	response := make([]*models.IntentResponse, 0, end-start)
	for _, intent := range intents[start:end] {
		response = append(response, intent.ToResponse())
	}

	c.JSON(http.StatusOK, response)
}

// RefundIntent handles refunding an expired intent
func (s *Server) RefundIntent(c *gin.Context) {
	intentID, err := codec.HexToBytes32(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req models.RefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.intentService.Refund(c.Request.Context(), req.Caller, intentID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}

// Notify handles an inbound fill notification from a messenger adapter
func (s *Server) Notify(c *gin.Context) {
	var req models.NotifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload, err := hex.DecodeString(strings.TrimPrefix(req.Payload, "0x"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload encoding"})
		return
	}

	err = s.intentService.Notify(
		c.Request.Context(),
		req.Caller,
		req.MessengerID,
		req.SourceChainID,
		req.SourceAddress,
		payload,
	)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "accepted"})
}
