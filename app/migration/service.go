package migration

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"

	"migrator/app/models"
	"migrator/pkg/eth"
)

// Service drives per-wallet transfer queues through estimate, sign, submit
// and confirm.
type Service interface {
	AddAsset(ctx context.Context, req *models.AddAsset) ([]*models.AssetTransfer, error)
	RemoveAsset(ctx context.Context, req *models.RemoveAsset) ([]*models.AssetTransfer, error)
	ListAssets(ctx context.Context, address string) ([]*models.AssetTransfer, error)
	CheckEligibility(ctx context.Context, address string, supported []*models.AssetData) (*models.MigrationEligibility, error)
	EstimateTransfers(ctx context.Context, address string) error
	SignTransfers(ctx context.Context, req *models.StartMigration) (*models.SigningResult, error)
	CheckTransactions(ctx context.Context, address string) error
	MigrationStatus(ctx context.Context, address string) (*models.MigrationStatus, error)
}

// Narrow node contracts so the pipeline can be exercised against fakes.
// *eth.Client satisfies all of them.

type GasOracle interface {
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

type GasEstimator interface {
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

type Broadcaster interface {
	SendRawTransaction(ctx context.Context, rawTx string) (string, error)
}

type ChainReader interface {
	TransactionInfo(ctx context.Context, hash string) (*eth.TransactionInfo, error)
}

type BalanceReader interface {
	NativeBalance(ctx context.Context, address string) (*big.Int, error)
	TokenBalance(ctx context.Context, contractAddress, address string) (*big.Int, error)
}
