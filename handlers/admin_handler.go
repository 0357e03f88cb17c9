package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/models"
	"github.com/RozoAI/rozo-intents/services"
)

// Initialize handles the one-time owner setup
func (s *Server) Initialize(c *gin.Context) {
	var req struct {
		Owner string `json:"owner" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.Initialize(c.Request.Context(), req.Owner); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"owner": req.Owner})
}

// SetProtocolFee handles updating the protocol fee
func (s *Server) SetProtocolFee(c *gin.Context) {
	var req struct {
		Caller string `json:"caller" binding:"required"`
		FeeBps uint32 `json:"fee_bps"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.SetProtocolFee(c.Request.Context(), req.Caller, req.FeeBps); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fee_bps": req.FeeBps})
}

// GetProtocolFee handles reading the protocol fee
func (s *Server) GetProtocolFee(c *gin.Context) {
	fee, err := s.adminService.GetProtocolFee(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"fee_bps": fee})
}

// SetFeeRecipient handles updating the fee recipient
func (s *Server) SetFeeRecipient(c *gin.Context) {
	var req struct {
		Caller    string `json:"caller" binding:"required"`
		Recipient string `json:"recipient" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.SetFeeRecipient(c.Request.Context(), req.Caller, req.Recipient); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"recipient": req.Recipient})
}

// AddRelayer handles registering a relayer
func (s *Server) AddRelayer(c *gin.Context) {
	var req struct {
		Caller  string `json:"caller" binding:"required"`
		Relayer string `json:"relayer" binding:"required"`
		Type    string `json:"type" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	relayerType := models.RelayerType(req.Type)
	if relayerType != models.RelayerTypeFallback && relayerType != models.RelayerTypeExternal {
		c.JSON(http.StatusBadRequest, gin.H{"error": "relayer type must be fallback or external"})
		return
	}

	if err := s.adminService.AddRelayer(c.Request.Context(), req.Caller, req.Relayer, relayerType); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"relayer": req.Relayer, "type": req.Type})
}

// RemoveRelayer handles revoking a relayer
func (s *Server) RemoveRelayer(c *gin.Context) {
	var req struct {
		Caller string `json:"caller" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.RemoveRelayer(c.Request.Context(), req.Caller, c.Param("address")); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// RegisterMessenger handles binding a messenger adapter ID to its inbound
// address and optional gateway endpoint
func (s *Server) RegisterMessenger(c *gin.Context) {
	var req struct {
		Caller      string `json:"caller" binding:"required"`
		MessengerID uint32 `json:"messenger_id"`
		Address     string `json:"address" binding:"required"`
		Endpoint    string `json:"endpoint"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var transport services.Messenger
	if req.Endpoint != "" {
		transport = services.NewHTTPMessenger(req.Endpoint)
	}

	if err := s.adminService.RegisterMessenger(c.Request.Context(), req.Caller, req.MessengerID, req.Address, transport); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"messenger_id": req.MessengerID})
}

// SetChainName handles mapping a chain ID to a routing name
func (s *Server) SetChainName(c *gin.Context) {
	var req struct {
		Caller  string `json:"caller" binding:"required"`
		ChainID uint64 `json:"chain_id" binding:"required"`
		Name    string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.SetChainName(c.Request.Context(), req.Caller, req.ChainID, req.Name); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chain_id": req.ChainID, "name": req.Name})
}

// SetTrustedContract handles recording the counterpart engine on a remote chain
func (s *Server) SetTrustedContract(c *gin.Context) {
	var req struct {
		Caller  string `json:"caller" binding:"required"`
		Chain   string `json:"chain" binding:"required"`
		Address string `json:"address" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.SetTrustedContract(c.Request.Context(), req.Caller, req.Chain, req.Address); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chain": req.Chain, "address": req.Address})
}

// SetFallbackRelayer handles designating the fallback relayer
func (s *Server) SetFallbackRelayer(c *gin.Context) {
	var req struct {
		Caller  string `json:"caller" binding:"required"`
		Relayer string `json:"relayer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.SetFallbackRelayer(c.Request.Context(), req.Caller, req.Relayer); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"relayer": req.Relayer})
}

// SetFallbackThreshold handles updating the fallback wait threshold
func (s *Server) SetFallbackThreshold(c *gin.Context) {
	var req struct {
		Caller  string `json:"caller" binding:"required"`
		Seconds int64  `json:"seconds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Seconds < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "threshold cannot be negative"})
		return
	}

	threshold := time.Duration(req.Seconds) * time.Second
	if err := s.adminService.SetFallbackThreshold(c.Request.Context(), req.Caller, threshold); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"seconds": req.Seconds})
}

// SetIntentStatus handles an admin status override
func (s *Server) SetIntentStatus(c *gin.Context) {
	intentID, err := codec.HexToBytes32(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Caller string `json:"caller" binding:"required"`
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	status := models.IntentStatus(req.Status)
	switch status {
	case models.IntentStatusPending, models.IntentStatusFilled, models.IntentStatusFailed, models.IntentStatusRefunded:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown intent status"})
		return
	}

	if err := s.adminService.SetIntentStatus(c.Request.Context(), req.Caller, intentID, status); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": req.Status})
}

// SetIntentRelayer handles an admin relayer override
func (s *Server) SetIntentRelayer(c *gin.Context) {
	intentID, err := codec.HexToBytes32(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Caller  string `json:"caller" binding:"required"`
		Relayer string `json:"relayer" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	relayer, err := codec.AddressToCanonical(req.Relayer, true)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.SetIntentRelayer(c.Request.Context(), req.Caller, intentID, relayer.Value); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"relayer": req.Relayer})
}

// ForceRefund handles an admin refund regardless of deadline
func (s *Server) ForceRefund(c *gin.Context) {
	intentID, err := codec.HexToBytes32(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req struct {
		Caller string `json:"caller" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := s.adminService.ForceRefund(c.Request.Context(), req.Caller, intentID); err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}

// WithdrawFees handles moving accumulated fees to the fee recipient
func (s *Server) WithdrawFees(c *gin.Context) {
	var req struct {
		Caller string `json:"caller" binding:"required"`
		Token  string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	amount, err := s.adminService.WithdrawFees(c.Request.Context(), req.Caller, req.Token)
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": req.Token, "amount": amount.String()})
}

// GetAccumulatedFees handles reading the undistributed fee balance for a token
func (s *Server) GetAccumulatedFees(c *gin.Context) {
	amount, err := s.adminService.GetAccumulatedFees(c.Request.Context(), c.Param("token"))
	if err != nil {
		abortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": c.Param("token"), "amount": amount.String()})
}
