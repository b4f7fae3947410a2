package migration

import (
	"context"
	"math/big"

	"migrator/app/keywallet"
	"migrator/app/models"
	"migrator/pkg/log"
)

// SignTransfers signs every estimated item in queue order with a locally
// managed nonce sequence. Signing is strictly sequential: each signature
// depends on the nonce advanced by the previous one. Items that cannot be
// signed are dropped from the queue; the drops are reported back.
func (m *Manager) SignTransfers(
	ctx context.Context, req *models.StartMigration,
) (*models.SigningResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	address := req.WalletAddress
	log.AddFields(ctx, "sign transfers for", address)

	result := new(models.SigningResult)

	q := m.queue(ctx, address)
	if !q.signing.CompareAndSwap(false, true) {
		log.Info("a signing pass is already running, skipping")
		return result, nil
	}
	defer q.signing.Store(false)

	destination := m.destinationFor(ctx, address)
	if destination == "" {
		log.Warnw("no destination smart wallet resolvable, skipping signing", "address", address)
		return result, nil
	}

	count, err := m.KeyWallet.TransactionCount(ctx, address)
	if err != nil {
		log.Warnw("failed to sync the account nonce, skipping signing", "error", err)
		return result, nil
	}
	// nextNonce tracks lastNonce + 1; it advances only when a signature
	// succeeds, so failed items never consume a nonce
	nextNonce := count

	items := q.snapshot()
	kept := make([]*models.AssetTransfer, 0, len(items))
	for _, item := range items {
		if item.Status != "" || item.SignedTransaction != nil {
			kept = append(kept, item)
			continue
		}

		if !item.AssetData.IsCollectible() && item.Amount == nil {
			// never estimated or unadjustable, drop it
			log.Warnw("dropping a transfer without a final amount", "token", item.AssetData.Token)
			result.DroppedAssets = append(result.DroppedAssets, assetName(item.AssetData))
			continue
		}

		if item.CalculatedGasLimit == 0 {
			log.Warnw("dropping a transfer without a gas limit", "token", item.AssetData.Token)
			result.DroppedAssets = append(result.DroppedAssets, assetName(item.AssetData))
			continue
		}

		gasPrice, ok := new(big.Int).SetString(item.GasPrice, 10)
		if !ok {
			log.Warnw("dropping a transfer without a gas price", "token", item.AssetData.Token)
			result.DroppedAssets = append(result.DroppedAssets, assetName(item.AssetData))
			continue
		}

		signed, err := m.KeyWallet.SignAssetTransfer(ctx, &keywallet.SignRequest{
			PrivateKey: req.PrivateKey,
			To:         destination,
			AssetData:  item.AssetData,
			Amount:     item.Amount,
			Nonce:      nextNonce,
			GasLimit:   item.CalculatedGasLimit,
			GasPrice:   gasPrice,
		})
		if err != nil {
			log.Warnw("failed to sign a transfer, dropping it",
				"token", item.AssetData.Token, "error", err)
			result.DroppedAssets = append(result.DroppedAssets, assetName(item.AssetData))
			continue
		}

		nextNonce++
		item.SignedTransaction = signed
		result.SignedCount++
		kept = append(kept, item)
	}

	m.setAndStore(q, address, kept)

	// kick off the first submission right away
	if err = m.CheckTransactions(ctx, address); err != nil {
		log.Warnw("failed to run a submission pass after signing", "error", err)
	}

	return result, nil
}

func assetName(asset *models.AssetData) string {
	if asset.IsCollectible() {
		return asset.ContractAddress + "#" + asset.TokenID
	}
	return asset.Token
}
