package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/models"
	"github.com/RozoAI/rozo-intents/utils"
)

// FillAndNotify handles a relayer fill on the destination chain
func (s *Server) FillAndNotify(c *gin.Context) {
	var req models.FillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := utils.ValidateFillRequest(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := toIntentData(&req.Intent)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	repayment, err := codec.AddressToCanonical(req.RepaymentAddress, req.RepaymentIsAccount)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fillHash, err := s.fillService.FillAndNotify(c.Request.Context(), req.Relayer, data, repayment, req.MessengerID)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"fill_hash": codec.Bytes32Hex(fillHash)})
}

// RetryNotify handles re-dispatching a notification for a performed fill
func (s *Server) RetryNotify(c *gin.Context) {
	var req models.FillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data, err := toIntentData(&req.Intent)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.fillService.RetryNotify(c.Request.Context(), req.Relayer, data, req.MessengerID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "dispatched"})
}

// GetFillRecord handles retrieving a fill record by fill hash
func (s *Server) GetFillRecord(c *gin.Context) {
	hash := c.Param("hash")
	if !utils.IsValidBytes32(hash) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid fill hash format"})
		return
	}

	fillHash, err := codec.HexToBytes32(hash)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := s.fillService.GetFillRecord(c.Request.Context(), fillHash)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, record.ToResponse(fillHash))
}
