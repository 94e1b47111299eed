package main

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
)

// assetVault holds the auctioned supply in custody. The auctioneer funds it
// with the full supply before the first bid is accepted, so every allocation
// claim can be honored. Implements core.AssetCustody.
type assetVault struct {
	balance   uint64
	transfers map[string]uint64
}

func newAssetVault(supply uint64) *assetVault {
	return &assetVault{
		balance:   supply,
		transfers: make(map[string]uint64),
	}
}

// Transfer moves allocated units out of custody to the claiming bidder.
func (v *assetVault) Transfer(recipient string, units uint64) error {
	if units > v.balance {
		return fmt.Errorf("asset custody underfunded: have %d units, need %d", v.balance, units)
	}
	v.balance -= units
	v.transfers[recipient] += units
	log.Printf("INFO: Transferred %d units to %s (%d units remain in custody)", units, recipient, v.balance)
	return nil
}

// Balance returns the units still held in custody.
func (v *assetVault) Balance() uint64 { return v.balance }

// currencyVault holds bidders' payments until they are consumed by the sale
// or returned as refunds. Implements core.CurrencyCustody.
type currencyVault struct {
	balance decimal.Decimal
	payouts map[string]decimal.Decimal
}

func newCurrencyVault() *currencyVault {
	return &currencyVault{payouts: make(map[string]decimal.Decimal)}
}

// Deposit credits a bid payment to the vault.
func (v *currencyVault) Deposit(amount decimal.Decimal) {
	v.balance = v.balance.Add(amount)
}

// Pay moves refund currency out of the vault to the claiming bidder.
func (v *currencyVault) Pay(recipient string, amount decimal.Decimal) error {
	if amount.GreaterThan(v.balance) {
		return fmt.Errorf("currency custody underfunded: have %s, need %s", v.balance, amount)
	}
	v.balance = v.balance.Sub(amount)
	v.payouts[recipient] = v.payouts[recipient].Add(amount)
	log.Printf("INFO: Paid %s to %s (%s remains in custody)", amount, recipient, v.balance)
	return nil
}

// Balance returns the currency still held in custody.
func (v *currencyVault) Balance() decimal.Decimal { return v.balance }
