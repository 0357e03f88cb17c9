package handlers

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/RozoAI/rozo-intents/codec"
	"github.com/RozoAI/rozo-intents/models"
	"github.com/RozoAI/rozo-intents/services"
)

// parseAmount parses a decimal base-unit amount string.
func parseAmount(s string) (*big.Int, error) {
	value, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Wrapf(services.ErrInvalidAmount, "malformed amount %q", s)
	}
	return value, nil
}

// toCreateParams converts a create request into service parameters.
func toCreateParams(req *models.CreateIntentRequest) (services.CreateIntentParams, error) {
	var params services.CreateIntentParams

	intentID, err := codec.HexToBytes32(req.ID)
	if err != nil {
		return params, err
	}
	destToken, err := codec.AddressToCanonical(req.DestinationToken, false)
	if err != nil {
		return params, err
	}
	receiver, err := codec.AddressToCanonical(req.Receiver, req.ReceiverIsAccount)
	if err != nil {
		return params, err
	}
	sourceAmount, err := parseAmount(req.SourceAmount)
	if err != nil {
		return params, err
	}
	destAmount, err := parseAmount(req.DestinationAmount)
	if err != nil {
		return params, err
	}

	relayer := models.ZeroBytes32
	if req.Relayer != "" {
		assigned, err := codec.AddressToCanonical(req.Relayer, true)
		if err != nil {
			return params, err
		}
		relayer = assigned.Value
	}

	return services.CreateIntentParams{
		Sender:             req.Sender,
		IntentID:           intentID,
		SourceToken:        req.SourceToken,
		SourceAmount:       sourceAmount,
		DestinationChainID: req.DestinationChainID,
		DestinationToken:   destToken.Value,
		Receiver:           receiver.Value,
		ReceiverIsAccount:  req.ReceiverIsAccount,
		DestinationAmount:  destAmount,
		Deadline:           time.Unix(req.Deadline, 0),
		RefundAddress:      req.RefundAddress,
		Relayer:            relayer,
	}, nil
}

// toIntentData converts a relayer-reported snapshot into the hash-stable form.
func toIntentData(req *models.IntentDataRequest) (*models.IntentData, error) {
	intentID, err := codec.HexToBytes32(req.IntentID)
	if err != nil {
		return nil, err
	}
	sender, err := codec.AddressToCanonical(req.Sender, true)
	if err != nil {
		return nil, err
	}
	refund, err := codec.AddressToCanonical(req.RefundAddress, true)
	if err != nil {
		return nil, err
	}
	sourceToken, err := codec.AddressToCanonical(req.SourceToken, false)
	if err != nil {
		return nil, err
	}
	destToken, err := codec.AddressToCanonical(req.DestinationToken, false)
	if err != nil {
		return nil, err
	}
	receiver, err := codec.AddressToCanonical(req.Receiver, req.ReceiverIsAccount)
	if err != nil {
		return nil, err
	}
	sourceAmount, err := parseAmount(req.SourceAmount)
	if err != nil {
		return nil, err
	}
	destAmount, err := parseAmount(req.DestinationAmount)
	if err != nil {
		return nil, err
	}

	relayer := models.ZeroBytes32
	if req.Relayer != "" {
		assigned, err := codec.AddressToCanonical(req.Relayer, true)
		if err != nil {
			return nil, err
		}
		relayer = assigned.Value
	}

	return &models.IntentData{
		IntentID:           intentID,
		Sender:             sender.Value,
		RefundAddress:      refund.Value,
		SourceToken:        sourceToken.Value,
		SourceAmount:       sourceAmount,
		SourceChainID:      req.SourceChainID,
		DestinationChainID: req.DestinationChainID,
		DestinationToken:   destToken.Value,
		Receiver:           receiver.Value,
		ReceiverIsAccount:  req.ReceiverIsAccount,
		DestinationAmount:  destAmount,
		Deadline:           uint64(req.Deadline),
		CreatedAt:          uint64(req.CreatedAt),
		Relayer:            relayer,
	}, nil
}
