package evm

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/RozoAI/rozo-intents/logging"
	"github.com/RozoAI/rozo-intents/services"
)

// erc20ABI covers the three methods the transferor issues.
const erc20ABI = `[
	{
		"constant": false,
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "from", "type": "address"},
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"name": "", "type": "bool"}],
		"type": "function"
	},
	{
		"constant": true,
		"inputs": [{"name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"name": "", "type": "uint256"}],
		"type": "function"
	}
]`

// Backend is the slice of the eth client the transferor needs. It is
// satisfied by *ethclient.Client.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

var _ Backend = (*ethclient.Client)(nil)

// receiptPollInterval is how often a submitted transaction is checked for
// inclusion.
const receiptPollInterval = 2 * time.Second

// Transferor moves ERC-20 balances on an EVM chain. The signing key doubles
// as the engine's custody account: transfers out of custody spend from the
// signer, transfers from any other account go through transferFrom and rely
// on a prior allowance.
type Transferor struct {
	client  Backend
	chainID *big.Int
	key     *ecdsa.PrivateKey
	signer  common.Address
	erc20   abi.ABI
	logger  zerolog.Logger
}

var _ services.AssetTransferor = (*Transferor)(nil)

// NewTransferor creates a transferor signing with the given hex-encoded key.
func NewTransferor(client Backend, chainID *big.Int, hexKey string, logger zerolog.Logger) (*Transferor, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse signing key")
	}

	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse ERC-20 ABI")
	}

	return &Transferor{
		client:  client,
		chainID: chainID,
		key:     key,
		signer:  crypto.PubkeyToAddress(key.PublicKey),
		erc20:   parsed,
		logger:  logger.With().Str(logging.FieldModule, "evm_transferor").Logger(),
	}, nil
}

// Transfer moves amount of token from one account to another.
func (t *Transferor) Transfer(ctx context.Context, token, from, to string, amount *big.Int) error {
	toAddr := common.HexToAddress(to)

	var (
		data []byte
		err  error
	)
	if t.isCustody(from) {
		data, err = t.erc20.Pack("transfer", toAddr, amount)
	} else {
		data, err = t.erc20.Pack("transferFrom", common.HexToAddress(from), toAddr, amount)
	}
	if err != nil {
		return errors.Wrap(err, "failed to pack transfer call")
	}

	tx, err := t.sendTransaction(ctx, common.HexToAddress(token), data)
	if err != nil {
		return err
	}

	receipt, err := t.waitMined(ctx, tx)
	if err != nil {
		return errors.Wrapf(err, "failed waiting for transaction %s", tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return errors.Errorf("transaction %s reverted", tx.Hash().Hex())
	}

	t.logger.Info().
		Str("tx_hash", tx.Hash().Hex()).
		Str("token", token).
		Str("to", to).
		Str("amount", amount.String()).
		Msg("transfer confirmed")

	return nil
}

// waitMined polls for the transaction receipt until the transaction is
// included or the context ends.
func (t *Transferor) waitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	ticker := time.NewTicker(receiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := t.client.TransactionReceipt(ctx, tx.Hash())
		if err == nil {
			return receipt, nil
		}
		if !errors.Is(err, ethereum.NotFound) {
			return nil, errors.Wrap(err, "failed to get transaction receipt")
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Balance returns the token balance of an account.
func (t *Transferor) Balance(ctx context.Context, token, account string) (*big.Int, error) {
	acct := t.signer
	if !t.isCustody(account) {
		acct = common.HexToAddress(account)
	}

	data, err := t.erc20.Pack("balanceOf", acct)
	if err != nil {
		return nil, errors.Wrap(err, "failed to pack balanceOf call")
	}

	tokenAddr := common.HexToAddress(token)
	result, err := t.client.CallContract(ctx, ethereum.CallMsg{
		To:   &tokenAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}

	values, err := t.erc20.Unpack("balanceOf", result)
	if err != nil {
		return nil, errors.Wrap(err, "failed to unpack balanceOf result")
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, errors.New("unexpected balanceOf result type")
	}
	return balance, nil
}

func (t *Transferor) isCustody(account string) bool {
	if account == services.CustodyAccount {
		return true
	}
	return common.IsHexAddress(account) && common.HexToAddress(account) == t.signer
}

func (t *Transferor) sendTransaction(ctx context.Context, to common.Address, data []byte) (*types.Transaction, error) {
	nonce, err := t.client.PendingNonceAt(ctx, t.signer)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get nonce")
	}

	gasPrice, err := t.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get gas price")
	}

	gasLimit, err := t.client.EstimateGas(ctx, ethereum.CallMsg{
		From: t.signer,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to estimate gas")
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(t.chainID), t.key)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign transaction")
	}

	if err := t.client.SendTransaction(ctx, signed); err != nil {
		return nil, errors.Wrap(err, "failed to send transaction")
	}
	return signed, nil
}
