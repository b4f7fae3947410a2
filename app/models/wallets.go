package models

import (
	"github.com/pkg/errors"

	"migrator/pkg/crypto"
	"migrator/pkg/eth"
)

// NewWallet registers a key-based wallet that is about to migrate its assets.
type NewWallet struct {
	Address            string `json:"address,omitempty"`
	SmartWalletAddress string `json:"smart_wallet_address,omitempty"`
	Signature          string `json:"-"` // provided in a header
}

func (w *NewWallet) Validate(apiSecret string) error {
	if w.Address == "" {
		return errors.New("empty wallet address provided")
	}

	if !eth.IsValidAddress(w.Address) {
		return errors.New("invalid wallet address provided")
	}

	if w.SmartWalletAddress != "" && !eth.IsValidAddress(w.SmartWalletAddress) {
		return errors.New("invalid smart wallet address provided")
	}

	if w.Signature == "" {
		return errors.New("empty signature provided")
	}

	if crypto.GetSHA256(w.Address, apiSecret) != w.Signature {
		return errors.New("invalid signature provided")
	}

	return nil
}

type Wallet struct {
	Base
	NewWallet
}

type AuthorizedWallet struct {
	Wallet      *Wallet `json:"wallet"`
	AccessToken string  `json:"access_token,omitempty"`
}

type GetWallet struct {
	Address   string `json:"address,omitempty"`
	Signature string `json:"-"` // provided in a header
}

func (w *GetWallet) Validate(apiSecret string) error {
	if w.Address == "" {
		return errors.New("empty wallet address provided")
	}

	if w.Signature == "" {
		return errors.New("empty signature provided")
	}

	if crypto.GetSHA256(w.Address, apiSecret) != w.Signature {
		return errors.New("invalid signature provided")
	}

	return nil
}

type Balance struct {
	ETH    float64            `json:"eth"`
	Tokens map[string]float64 `json:"tokens,omitempty"`
}
