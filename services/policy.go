package services

import (
	"context"
	"time"

	"github.com/RozoAI/rozo-intents/db"
	"github.com/RozoAI/rozo-intents/models"
)

// AuthorizeFill decides whether a relayer may perform a fill. The assigned
// relayer (canonical match) always may; the registered fallback relayer may
// only once the threshold has elapsed since intent creation, and a threshold
// of zero disables the fallback path entirely. Open intents (all-zero
// relayer field) accept any registered relayer.
func AuthorizeFill(
	ctx context.Context,
	database db.Database,
	relayer string,
	relayerCanonical models.Bytes32,
	assigned models.Bytes32,
	createdAt time.Time,
	now time.Time,
) error {
	relayerType, err := database.GetRelayerType(ctx, relayer)
	if err != nil {
		return err
	}
	if relayerType == models.RelayerTypeNone {
		return ErrNotRelayer
	}

	if assigned == models.ZeroBytes32 {
		return nil
	}

	if relayerCanonical == assigned {
		return nil
	}

	fallback, err := database.GetFallbackRelayer(ctx)
	if err != nil {
		return err
	}
	threshold, err := database.GetFallbackThreshold(ctx)
	if err != nil {
		return err
	}

	if fallback != "" && relayer == fallback && relayerType == models.RelayerTypeFallback &&
		threshold > 0 && !now.Before(createdAt.Add(threshold)) {
		return nil
	}

	return ErrNotAssignedRelayer
}
