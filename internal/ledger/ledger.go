// Package ledger provides the in-process fund custodian. Balances live in a
// single mutex-guarded table; every movement is all-or-nothing.
package ledger

import (
	"context"
	"sync"

	"github.com/predmarket/marketd/internal/domain"
)

// Memory is an in-process domain.Ledger.
type Memory struct {
	mu       sync.Mutex
	balances map[string]uint64
}

// NewMemory creates a ledger with no funded accounts.
func NewMemory() *Memory {
	return &Memory{balances: make(map[string]uint64)}
}

// Transfer moves amount from one account to another, failing with
// ErrInsufficientFunds when the source cannot cover it.
func (l *Memory) Transfer(_ context.Context, from, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[from] < amount {
		return domain.ErrInsufficientFunds
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Credit adds amount to an account.
func (l *Memory) Credit(_ context.Context, account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[account]+amount < l.balances[account] {
		return domain.ErrMathOverflow
	}
	l.balances[account] += amount
	return nil
}

// Debit removes amount from an account, failing with ErrInsufficientFunds
// when the balance cannot cover it.
func (l *Memory) Debit(_ context.Context, account string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.balances[account] < amount {
		return domain.ErrInsufficientFunds
	}
	l.balances[account] -= amount
	return nil
}

// BalanceOf returns the current balance of an account.
func (l *Memory) BalanceOf(_ context.Context, account string) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account], nil
}

var _ domain.Ledger = (*Memory)(nil)
