package models

import (
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// AddAsset queues one more asset for migration.
type AddAsset struct {
	WalletAddress string     `json:"-"` // filled from access token
	AssetData     *AssetData `json:"asset_data"`
	DraftAmount   string     `json:"draft_amount,omitempty"`
}

func (a *AddAsset) Validate() error {
	if a.WalletAddress == "" {
		return errors.New("empty wallet address; it must be set on server during the processing, contact the support")
	}

	if err := a.AssetData.Validate(); err != nil {
		return err
	}

	if a.DraftAmount != "" {
		amount, err := decimal.NewFromString(a.DraftAmount)
		if err != nil {
			return errors.Wrap(err, "invalid draft amount provided")
		}
		if amount.Sign() < 0 {
			return errors.New("negative draft amount provided")
		}
	}

	return nil
}

// DraftAmountDecimal returns the parsed draft amount, nil when absent.
func (a *AddAsset) DraftAmountDecimal() *decimal.Decimal {
	if a.DraftAmount == "" {
		return nil
	}
	amount, err := decimal.NewFromString(a.DraftAmount)
	if err != nil {
		return nil
	}
	return &amount
}

// RemoveAsset drops an asset from the migration queue.
type RemoveAsset struct {
	WalletAddress string     `json:"-"` // filled from access token
	AssetData     *AssetData `json:"asset_data"`
}

func (r *RemoveAsset) Validate() error {
	if r.WalletAddress == "" {
		return errors.New("empty wallet address; it must be set on server during the processing, contact the support")
	}
	return r.AssetData.Validate()
}

// StartMigration signs the whole queue and submits the first transfer. The
// private key stays in memory for the duration of the call only.
type StartMigration struct {
	WalletAddress string `json:"-"` // filled from access token
	PrivateKey    string `json:"private_key"`
}

func (s *StartMigration) Validate() error {
	if s.WalletAddress == "" {
		return errors.New("empty wallet address; it must be set on server during the processing, contact the support")
	}
	if s.PrivateKey == "" {
		return errors.New("empty private key provided")
	}
	return nil
}

// MigrationEligibility reports what the source wallet still holds.
// CollectibleFetchFailed distinguishes a registry outage from a wallet
// that simply owns no collectibles.
type MigrationEligibility struct {
	Eligible               bool               `json:"eligible"`
	Balances               map[string]float64 `json:"balances,omitempty"`
	Collectibles           []*Collectible     `json:"collectibles,omitempty"`
	CollectibleFetchFailed bool               `json:"collectible_fetch_failed,omitempty"`
}

// SigningResult makes per-item signing drops observable to the caller.
type SigningResult struct {
	SignedCount   int      `json:"signed_count"`
	DroppedAssets []string `json:"dropped_assets,omitempty"`
}

// MigrationStatus is the queue as the status screen sees it.
type MigrationStatus struct {
	Transfers   []*AssetTransfer `json:"transfers"`
	InFlight    string           `json:"in_flight,omitempty"` // hash of the pending transaction
	Estimating  bool             `json:"estimating,omitempty"`
	Signing     bool             `json:"signing,omitempty"`
	Completed   bool             `json:"completed"`
}

// MigrationCompleted is pushed to the wallet's websocket subscribers once,
// when the queue drains from non-empty to empty.
type MigrationCompleted struct {
	WalletAddress    string `json:"wallet_address"`
	TransferredCount int    `json:"transferred_count"`
}
