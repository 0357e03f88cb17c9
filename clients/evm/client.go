package evm

import (
	"context"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/RozoAI/rozo-intents/logging"
)

// Dial connects to an EVM chain over the given RPC endpoint. WebSocket URLs
// get a real subscription-capable client; HTTP falls back to polling.
func Dial(ctx context.Context, rpcURL string, logger zerolog.Logger) (*ethclient.Client, error) {
	logger = logger.With().
		Str(logging.FieldModule, "evm_client").
		Logger()

	var evmClient *ethclient.Client

	if isWebSocketURL(rpcURL) {
		rpcClient, err := rpc.DialWebsocket(ctx, rpcURL, "")
		if err != nil {
			return nil, errors.Wrap(err, "failed to create WebSocket RPC client")
		}

		evmClient = ethclient.NewClient(rpcClient)

		logger.Info().Msg("Successfully created WebSocket client")
	} else {
		logger.Warn().Msg("Using HTTP RPC. Real-time subscriptions may not work. Consider using WebSockets")
		client, err := ethclient.Dial(rpcURL)
		if err != nil {
			return nil, errors.Wrap(err, "failed to connect to chain")
		}

		evmClient = client
	}

	// verify that the client works
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	bn, err := evmClient.BlockNumber(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get block number")
	}

	logger.Info().
		Uint64("block", bn).
		Msg("Successfully created EVM client")

	return evmClient, nil
}

func isWebSocketURL(url string) bool {
	return strings.HasPrefix(url, "wss://") || strings.HasPrefix(url, "ws://")
}
