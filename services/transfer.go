package services

import (
	"context"
	"math/big"
	"sync"

	"github.com/pkg/errors"
)

// ErrInsufficientBalance is returned by transfer backends when the sender
// cannot cover the amount.
var ErrInsufficientBalance = errors.New("insufficient balance")

// AssetTransferor abstracts token movement on the host chain. Transfers are
// assumed atomic-or-reverting: a nil return means the funds moved, an error
// means nothing moved.
type AssetTransferor interface {
	Transfer(ctx context.Context, token, from, to string, amount *big.Int) error
	Balance(ctx context.Context, token, account string) (*big.Int, error)
}

// LedgerTransferor is an in-process asset ledger. It backs tests and local
// deployments; production deployments use the EVM client.
type LedgerTransferor struct {
	mu       sync.Mutex
	balances map[string]map[string]*big.Int
}

// NewLedgerTransferor creates an empty ledger
func NewLedgerTransferor() *LedgerTransferor {
	return &LedgerTransferor{balances: make(map[string]map[string]*big.Int)}
}

// Mint credits an account, for test setup
func (l *LedgerTransferor) Mint(token, account string, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, account, amount)
}

func (l *LedgerTransferor) credit(token, account string, amount *big.Int) {
	if l.balances[token] == nil {
		l.balances[token] = make(map[string]*big.Int)
	}
	current, ok := l.balances[token][account]
	if !ok {
		current = big.NewInt(0)
	}
	l.balances[token][account] = new(big.Int).Add(current, amount)
}

// Transfer moves tokens between accounts, failing without effect when the
// sender balance is insufficient
func (l *LedgerTransferor) Transfer(_ context.Context, token, from, to string, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.balances[token][from]
	if !ok || current.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "token %s account %s", token, from)
	}

	l.balances[token][from] = new(big.Int).Sub(current, amount)
	l.credit(token, to, amount)
	return nil
}

// Balance returns the current balance of an account
func (l *LedgerTransferor) Balance(_ context.Context, token, account string) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, ok := l.balances[token][account]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(current), nil
}
