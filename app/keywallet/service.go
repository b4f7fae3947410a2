package keywallet

import (
	"context"
	"math/big"

	"github.com/shopspring/decimal"

	"migrator/app/models"
)

// SignRequest describes one transfer to sign. Amount is ignored for
// collectibles; the token id from the asset data is transferred instead.
type SignRequest struct {
	PrivateKey string
	To         string
	AssetData  *models.AssetData
	Amount     *decimal.Decimal
	Nonce      uint64
	GasLimit   uint64
	GasPrice   *big.Int
}

// Service signs asset transfers with the key-based wallet's private key.
// It never broadcasts; the signed payload is handed back to the queue.
type Service interface {
	TransactionCount(ctx context.Context, address string) (uint64, error)
	SignAssetTransfer(ctx context.Context, req *SignRequest) (*models.SignedAssetTransaction, error)
}
