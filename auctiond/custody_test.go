package main

import (
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestAssetVault_Transfer(t *testing.T) {
	vault := newAssetVault(10)

	err := vault.Transfer("alice", 4)
	assert.NoError(t, err)
	check.Equal(t, uint64(6), vault.Balance())

	err = vault.Transfer("bob", 6)
	assert.NoError(t, err)
	check.Equal(t, uint64(0), vault.Balance())
}

func TestAssetVault_Underfunded(t *testing.T) {
	vault := newAssetVault(3)

	err := vault.Transfer("alice", 4)
	assert.NotNil(t, err)
	// A failed transfer must not move anything.
	check.Equal(t, uint64(3), vault.Balance())
}

func TestCurrencyVault_DepositAndPay(t *testing.T) {
	vault := newCurrencyVault()
	vault.Deposit(decimal.NewFromInt(10))
	vault.Deposit(decimal.NewFromInt(5))

	err := vault.Pay("alice", decimal.NewFromInt(6))
	assert.NoError(t, err)
	check.True(t, vault.Balance().Equal(decimal.NewFromInt(9)))
}

func TestCurrencyVault_Underfunded(t *testing.T) {
	vault := newCurrencyVault()
	vault.Deposit(decimal.NewFromInt(2))

	err := vault.Pay("alice", decimal.NewFromInt(3))
	assert.NotNil(t, err)
	check.True(t, vault.Balance().Equal(decimal.NewFromInt(2)))
}
