package wallet

import (
	"context"

	"migrator/app/models"
)

type Service interface {
	CreateWallet(ctx context.Context, wallet *models.NewWallet) (*models.AuthorizedWallet, error)
	GetWallet(ctx context.Context, filter *models.GetWallet) (*models.AuthorizedWallet, error)
	GetBalance(ctx context.Context, address string, tokens []*models.AssetData) (*models.Balance, error)
}
