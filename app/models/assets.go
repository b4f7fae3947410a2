package models

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"migrator/pkg/eth"
)

const (
	// asset kinds
	AssetTypeToken       = "token"
	AssetTypeCollectible = "collectible"

	// the chain's native asset symbol
	NativeSymbol = "ETH"

	// transfer statuses; an empty status means the transfer was not submitted yet
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
)

// AssetData identifies a fungible token or a collectible on the chain.
type AssetData struct {
	Token           string `json:"token,omitempty"` // symbol
	Name            string `json:"name,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	Decimals        uint8  `json:"decimals,omitempty"`
	TokenType       string `json:"token_type,omitempty"`
	TokenID         string `json:"token_id,omitempty"`
}

func (a *AssetData) Validate() error {
	if a == nil {
		return errors.New("empty asset data provided")
	}

	if a.IsCollectible() {
		if a.ContractAddress == "" || a.TokenID == "" {
			return errors.New("collectible asset requires a contract address and a token id")
		}
		if !eth.IsValidAddress(a.ContractAddress) {
			return errors.New("invalid collectible contract address provided")
		}
		return nil
	}

	if a.Token == "" {
		return errors.New("empty token symbol provided")
	}
	if !a.IsNative() && !eth.IsValidAddress(a.ContractAddress) {
		return errors.New("invalid token contract address provided")
	}
	return nil
}

func (a *AssetData) IsCollectible() bool {
	return a != nil && a.TokenType == AssetTypeCollectible
}

func (a *AssetData) IsNative() bool {
	return a != nil && !a.IsCollectible() && a.Token == NativeSymbol
}

// Matches reports whether two asset descriptors point at the same asset.
// Collectibles match by contract address and token id, fungible tokens by
// symbol. Address comparison ignores checksum casing.
func (a *AssetData) Matches(other *AssetData) bool {
	if a == nil || other == nil {
		return false
	}
	if a.IsCollectible() != other.IsCollectible() {
		return false
	}
	if a.IsCollectible() {
		return eth.AddressesEqual(a.ContractAddress, other.ContractAddress) && a.TokenID == other.TokenID
	}
	return a.Token == other.Token
}

// SignedAssetTransaction is the sign-only output of the key-based wallet
// provider: the raw payload ready for broadcast plus the nonce bookkeeping.
type SignedAssetTransaction struct {
	RawTransaction   string `json:"raw_transaction"`
	Nonce            uint64 `json:"nonce"`
	TransactionCount uint64 `json:"transaction_count"`
	From             string `json:"from"`
	To               string `json:"to"`
}

// AssetTransfer is one queued asset migration. The queue drives it through
// estimate, sign, submit and confirm; confirmed transfers leave the queue.
type AssetTransfer struct {
	AssetData          *AssetData              `json:"asset_data"`
	DraftAmount        *decimal.Decimal        `json:"draft_amount,omitempty"`
	Amount             *decimal.Decimal        `json:"amount,omitempty"`
	CalculatedGasLimit uint64                  `json:"calculated_gas_limit,omitempty"`
	GasPrice           string                  `json:"gas_price,omitempty"` // wei, shared across the batch
	SignedTransaction  *SignedAssetTransaction `json:"signed_transaction,omitempty"`
	TransactionHash    string                  `json:"transaction_hash,omitempty"`
	Status             string                  `json:"status,omitempty"`
}

// Clone returns a deep copy detached from the queue, safe to hand to
// concurrent readers while a pipeline pass mutates its own copies.
func (t *AssetTransfer) Clone() *AssetTransfer {
	if t == nil {
		return nil
	}

	clone := *t
	if t.AssetData != nil {
		asset := *t.AssetData
		clone.AssetData = &asset
	}
	if t.DraftAmount != nil {
		draft := *t.DraftAmount
		clone.DraftAmount = &draft
	}
	if t.Amount != nil {
		amount := *t.Amount
		clone.Amount = &amount
	}
	if t.SignedTransaction != nil {
		signed := *t.SignedTransaction
		clone.SignedTransaction = &signed
	}
	return &clone
}

func (t *AssetTransfer) IsInFlight() bool {
	return t != nil && t.Status == TxStatusPending
}

func (t *AssetTransfer) IsConfirmed() bool {
	return t != nil && t.Status == TxStatusConfirmed
}

// IsSubmittable reports whether a transfer is signed and still waiting for
// its broadcast slot.
func (t *AssetTransfer) IsSubmittable() bool {
	return t != nil && t.Status == "" && t.SignedTransaction != nil
}

// Collectible is a single non-fungible item owned by the source wallet.
type Collectible struct {
	Name            string `json:"name,omitempty"`
	ContractAddress string `json:"contract_address"`
	TokenID         string `json:"token_id"`
	Image           string `json:"image,omitempty"`
}
