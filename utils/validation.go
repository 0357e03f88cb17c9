package utils

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"

	"github.com/RozoAI/rozo-intents/models"
)

var (
	// Address regex pattern (basic Ethereum address format)
	addressRegex = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)

	// Amount regex pattern (non-negative integer, base units)
	amountRegex = regexp.MustCompile(`^[0-9]+$`)

	// Bytes32 regex pattern (for intent IDs, fill hashes and canonical addresses)
	bytes32Regex = regexp.MustCompile(`^0x[a-fA-F0-9]{64}$`)
)

// ValidateAddress validates an address in either its 20-byte or canonical
// 32-byte hex form
func ValidateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	if !addressRegex.MatchString(address) && !bytes32Regex.MatchString(address) {
		return fmt.Errorf("invalid address format: %s", address)
	}
	return nil
}

// ValidateAmount checks if the amount is a positive base-unit integer
func ValidateAmount(amount string) error {
	if amount == "" {
		return errors.New("amount cannot be empty")
	}

	amount = strings.TrimSpace(amount)

	if !amountRegex.MatchString(amount) {
		return errors.New("invalid amount format")
	}

	value, success := new(big.Int).SetString(amount, 10)
	if !success {
		return errors.New("invalid amount format")
	}

	if value.Sign() <= 0 {
		return errors.New("amount must be positive")
	}

	return nil
}

// ValidateIntentRequest validates a create intent request
func ValidateIntentRequest(req *models.CreateIntentRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	if !IsValidBytes32(req.ID) {
		return errors.New("invalid intent ID format")
	}

	if err := ValidateAddress(req.Sender); err != nil {
		return fmt.Errorf("invalid sender: %w", err)
	}
	if err := ValidateAddress(req.RefundAddress); err != nil {
		return fmt.Errorf("invalid refund address: %w", err)
	}
	if err := ValidateAddress(req.SourceToken); err != nil {
		return fmt.Errorf("invalid source token: %w", err)
	}
	if err := ValidateAddress(req.DestinationToken); err != nil {
		return fmt.Errorf("invalid destination token: %w", err)
	}
	if err := ValidateAddress(req.Receiver); err != nil {
		return fmt.Errorf("invalid receiver: %w", err)
	}

	if err := ValidateAmount(req.SourceAmount); err != nil {
		return fmt.Errorf("invalid source amount: %w", err)
	}
	if err := ValidateAmount(req.DestinationAmount); err != nil {
		return fmt.Errorf("invalid destination amount: %w", err)
	}

	if req.Relayer != "" {
		if err := ValidateAddress(req.Relayer); err != nil {
			return fmt.Errorf("invalid relayer: %w", err)
		}
	}

	if req.Deadline <= 0 {
		return errors.New("deadline must be set")
	}

	return nil
}

// ValidateIntentDataRequest validates a relayer-reported intent snapshot
func ValidateIntentDataRequest(req *models.IntentDataRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	if !IsValidBytes32(req.IntentID) {
		return errors.New("invalid intent ID format")
	}

	for field, address := range map[string]string{
		"sender":            req.Sender,
		"refund address":    req.RefundAddress,
		"source token":      req.SourceToken,
		"destination token": req.DestinationToken,
		"receiver":          req.Receiver,
	} {
		if err := ValidateAddress(address); err != nil {
			return fmt.Errorf("invalid %s: %w", field, err)
		}
	}

	if err := ValidateAmount(req.SourceAmount); err != nil {
		return fmt.Errorf("invalid source amount: %w", err)
	}
	if err := ValidateAmount(req.DestinationAmount); err != nil {
		return fmt.Errorf("invalid destination amount: %w", err)
	}

	if req.Relayer != "" {
		if err := ValidateAddress(req.Relayer); err != nil {
			return fmt.Errorf("invalid relayer: %w", err)
		}
	}

	if req.SourceChainID == req.DestinationChainID {
		return errors.New("source and destination chains must be different")
	}

	return nil
}

// ValidateFillRequest validates a fill_and_notify request
func ValidateFillRequest(req *models.FillRequest) error {
	if req == nil {
		return errors.New("request cannot be nil")
	}

	if err := ValidateAddress(req.Relayer); err != nil {
		return fmt.Errorf("invalid relayer: %w", err)
	}
	if err := ValidateAddress(req.RepaymentAddress); err != nil {
		return fmt.Errorf("invalid repayment address: %w", err)
	}

	return ValidateIntentDataRequest(&req.Intent)
}

// IsValidBytes32 checks if a string is a valid bytes32 hex string
func IsValidBytes32(hash string) bool {
	return bytes32Regex.MatchString(hash)
}

// IsValidAddress checks if a string is a valid Ethereum address
func IsValidAddress(address string) bool {
	return addressRegex.MatchString(address)
}
