package wallet

import (
	"context"

	"migrator/app/auth"
	"migrator/app/config"
	"migrator/app/models"
	"migrator/app/storage/database"
	"migrator/pkg/eth"
	"migrator/pkg/log"
)

type Manager struct {
	DB        database.Database
	Secrets   config.Secrets
	Auth      auth.Service
	EthClient *eth.Client
}

func (m *Manager) CreateWallet(ctx context.Context, wallet *models.NewWallet) (*models.AuthorizedWallet, error) {
	log.AddFields(ctx, "wallet", wallet)

	if err := wallet.Validate(m.Secrets.API); err != nil {
		return nil, err
	}

	dbWallet, err := m.DB.CreateWallet(ctx, database.NewWalletFromPublic(wallet))
	if err != nil {
		return nil, err
	}

	wlt := dbWallet.ToPublic()
	accessToken, err := m.Auth.IssueAccessToken(ctx, wlt)
	if err != nil {
		return nil, err
	}

	return &models.AuthorizedWallet{
		Wallet:      wlt,
		AccessToken: accessToken,
	}, nil
}

func (m *Manager) GetWallet(ctx context.Context, filter *models.GetWallet) (*models.AuthorizedWallet, error) {
	log.AddFields(ctx, "filter", filter)

	if err := filter.Validate(m.Secrets.API); err != nil {
		return nil, err
	}

	dbWallet, err := m.DB.GetWallet(ctx, filter.Address)
	if err != nil {
		return nil, err
	}

	wlt := dbWallet.ToPublic()
	accessToken, err := m.Auth.IssueAccessToken(ctx, wlt)
	if err != nil {
		return nil, err
	}

	return &models.AuthorizedWallet{
		Wallet:      wlt,
		AccessToken: accessToken,
	}, nil
}

// GetBalance reads the native balance plus balanceOf for every fungible
// token descriptor provided. Collectible descriptors are skipped.
func (m *Manager) GetBalance(
	ctx context.Context, address string, tokens []*models.AssetData,
) (*models.Balance, error) {
	weiBalance, err := m.EthClient.NativeBalance(ctx, address)
	if err != nil {
		return nil, err
	}

	ethBalance, _ := eth.ToETH(weiBalance, eth.NativeDecimals).Float64()
	result := &models.Balance{
		ETH:    ethBalance,
		Tokens: make(map[string]float64),
	}

	for _, token := range tokens {
		if token == nil || token.IsCollectible() || token.IsNative() {
			continue
		}

		raw, err := m.EthClient.TokenBalance(ctx, token.ContractAddress, address)
		if err != nil {
			log.Warnw("failed to read a token balance",
				"token", token.Token, "address", address, "error", err)
			continue
		}

		balance, _ := eth.ToETH(raw, token.Decimals).Float64()
		result.Tokens[token.Token] = balance
	}

	return result, nil
}
