package database

import (
	"context"

	"migrator/app/models"
)

// Database persists wallets and transfer queue snapshots. The queue itself
// lives in memory; snapshots exist so a restarted service can show history.
type Database interface {
	CreateWallet(ctx context.Context, wallet *NewWallet) (*Wallet, error)
	GetWallet(ctx context.Context, address string) (*Wallet, error)
	SaveTransferQueue(ctx context.Context, address string, transfers []*models.AssetTransfer) error
	GetTransferQueue(ctx context.Context, address string) ([]*models.AssetTransfer, error)
	CompleteMigration(ctx context.Context, address string, transferred int) error
}
