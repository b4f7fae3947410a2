package database

import (
	"time"

	"github.com/shopspring/decimal"

	"migrator/app/models"
)

type Base struct {
	ID        string     `db:"id"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt *time.Time `db:"updated_at"`
	DeletedAt *time.Time `db:"deleted_at"`
}

func (b *Base) GetUpdatedAtUnix() int64 {
	if b == nil || b.UpdatedAt == nil {
		return 0
	}
	return b.UpdatedAt.Unix()
}

func (b *Base) ToPublic() models.Base {
	return models.Base{
		ID:        b.ID,
		CreatedAt: b.CreatedAt.Unix(),
		UpdatedAt: b.GetUpdatedAtUnix(),
	}
}

type NewWallet struct {
	Address            string `db:"address"`
	SmartWalletAddress string `db:"smart_wallet_address"`
}

func NewWalletFromPublic(wallet *models.NewWallet) *NewWallet {
	return &NewWallet{
		Address:            wallet.Address,
		SmartWalletAddress: wallet.SmartWalletAddress,
	}
}

type Wallet struct {
	Base
	NewWallet
	MigratedAt       *time.Time `db:"migrated_at"`
	TransferredCount int        `db:"transferred_count"`
}

func (w *Wallet) ToPublic() *models.Wallet {
	return &models.Wallet{
		Base: w.Base.ToPublic(),
		NewWallet: models.NewWallet{
			Address:            w.Address,
			SmartWalletAddress: w.SmartWalletAddress,
		},
	}
}

// AssetTransfer is one row of a queue snapshot.
type AssetTransfer struct {
	Base
	WalletAddress    string  `db:"wallet_address"`
	Token            string  `db:"token"`
	Name             string  `db:"name"`
	ContractAddress  string  `db:"contract_address"`
	Decimals         uint8   `db:"decimals"`
	TokenType        string  `db:"token_type"`
	TokenID          string  `db:"token_id"`
	DraftAmount      *string `db:"draft_amount"`
	Amount           *string `db:"amount"`
	GasLimit         uint64  `db:"gas_limit"`
	GasPrice         string  `db:"gas_price"`
	RawTransaction   string  `db:"raw_transaction"`
	Nonce            uint64  `db:"nonce"`
	TransactionCount uint64  `db:"transaction_count"`
	FromAddress      string  `db:"from_address"`
	ToAddress        string  `db:"to_address"`
	TxHash           string  `db:"tx_hash"`
	Status           string  `db:"status"`
}

func AssetTransferFromPublic(address string, transfer *models.AssetTransfer) *AssetTransfer {
	row := &AssetTransfer{
		WalletAddress: address,
		Status:        transfer.Status,
		TxHash:        transfer.TransactionHash,
		GasLimit:      transfer.CalculatedGasLimit,
		GasPrice:      transfer.GasPrice,
	}

	if transfer.AssetData != nil {
		row.Token = transfer.AssetData.Token
		row.Name = transfer.AssetData.Name
		row.ContractAddress = transfer.AssetData.ContractAddress
		row.Decimals = transfer.AssetData.Decimals
		row.TokenType = transfer.AssetData.TokenType
		row.TokenID = transfer.AssetData.TokenID
	}

	if transfer.DraftAmount != nil {
		draft := transfer.DraftAmount.String()
		row.DraftAmount = &draft
	}
	if transfer.Amount != nil {
		amount := transfer.Amount.String()
		row.Amount = &amount
	}

	if transfer.SignedTransaction != nil {
		row.RawTransaction = transfer.SignedTransaction.RawTransaction
		row.Nonce = transfer.SignedTransaction.Nonce
		row.TransactionCount = transfer.SignedTransaction.TransactionCount
		row.FromAddress = transfer.SignedTransaction.From
		row.ToAddress = transfer.SignedTransaction.To
	}

	return row
}

func (t *AssetTransfer) ToPublic() *models.AssetTransfer {
	result := &models.AssetTransfer{
		AssetData: &models.AssetData{
			Token:           t.Token,
			Name:            t.Name,
			ContractAddress: t.ContractAddress,
			Decimals:        t.Decimals,
			TokenType:       t.TokenType,
			TokenID:         t.TokenID,
		},
		CalculatedGasLimit: t.GasLimit,
		GasPrice:           t.GasPrice,
		TransactionHash:    t.TxHash,
		Status:             t.Status,
	}

	if t.DraftAmount != nil {
		if draft, err := decimal.NewFromString(*t.DraftAmount); err == nil {
			result.DraftAmount = &draft
		}
	}
	if t.Amount != nil {
		if amount, err := decimal.NewFromString(*t.Amount); err == nil {
			result.Amount = &amount
		}
	}

	if t.RawTransaction != "" {
		result.SignedTransaction = &models.SignedAssetTransaction{
			RawTransaction:   t.RawTransaction,
			Nonce:            t.Nonce,
			TransactionCount: t.TransactionCount,
			From:             t.FromAddress,
			To:               t.ToAddress,
		}
	}

	return result
}
