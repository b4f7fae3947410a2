package migration

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"

	"migrator/app/keywallet"
	"migrator/app/models"
	"migrator/pkg/eth"
	"migrator/pkg/log"
)

// EstimateTransfers attaches a shared gas price and a per-item gas limit to
// every queued transfer. Preconditions that cannot be met (no destination
// smart wallet, no gas price) make the whole pass a logged no-op; a single
// item failing to estimate does not abort the batch.
func (m *Manager) EstimateTransfers(ctx context.Context, address string) error {
	log.AddFields(ctx, "estimate transfers for", address)

	q := m.queue(ctx, address)
	if !q.estimating.CompareAndSwap(false, true) {
		log.Info("an estimation pass is already running, skipping")
		return nil
	}
	defer q.estimating.Store(false)

	destination := m.destinationFor(ctx, address)
	if destination == "" {
		log.Warnw("no destination smart wallet resolvable, skipping estimation", "address", address)
		return nil
	}

	gasPrice, err := m.GasOracle.SuggestGasPrice(ctx)
	if err != nil {
		log.Warnw("gas price is unavailable, skipping estimation", "error", err)
		return nil
	}

	items := q.snapshot()
	if len(items) == 0 {
		return nil
	}

	// estimates are independent, fan out
	var wg sync.WaitGroup
	for _, item := range items {
		if item.Status != "" {
			continue
		}

		wg.Add(1)
		go func(item *models.AssetTransfer) {
			defer wg.Done()
			m.estimateItem(ctx, item, address, destination, gasPrice)
		}(item)
	}
	wg.Wait()

	m.adjustNativeItem(ctx, items, address, destination, gasPrice)

	m.setAndStore(q, address, items)
	return nil
}

// estimateItem fills Amount, GasPrice and CalculatedGasLimit in place.
func (m *Manager) estimateItem(
	ctx context.Context,
	item *models.AssetTransfer,
	address, destination string,
	gasPrice *big.Int,
) {
	item.GasPrice = gasPrice.String()

	if item.Amount == nil && item.DraftAmount != nil && !item.AssetData.IsNative() {
		amount := eth.TruncateAmount(*item.DraftAmount, item.AssetData.Decimals)
		item.Amount = &amount
	}

	gasLimit, err := m.GasEstimator.EstimateGas(ctx, m.callMsg(item, address, destination))
	if err != nil {
		if item.AssetData.IsCollectible() {
			// collectible transfers fall back to the configured limit
			log.Warnw("failed to estimate a collectible transfer, using the configured gas limit",
				"token_id", item.AssetData.TokenID, "error", err)
			item.CalculatedGasLimit = m.Config.CollectibleGas
			return
		}
		log.Warnw("failed to estimate an asset transfer",
			"token", item.AssetData.Token, "error", err)
		return
	}
	item.CalculatedGasLimit = gasLimit
}

// adjustNativeItem recomputes the ETH item's amount so the wallet can still
// pay for the whole batch, then re-estimates that single item.
func (m *Manager) adjustNativeItem(
	ctx context.Context,
	items []*models.AssetTransfer,
	address, destination string,
	gasPrice *big.Int,
) {
	var native *models.AssetTransfer
	for _, item := range items {
		if item.Status == "" && item.AssetData.IsNative() {
			native = item
			break
		}
	}
	if native == nil || native.DraftAmount == nil {
		return
	}

	gasLimits := make([]uint64, 0, len(items))
	for _, item := range items {
		gasLimits = append(gasLimits, item.CalculatedGasLimit)
	}
	totalFee := eth.TotalGasFeeInETH(gasLimits, gasPrice)

	weiBalance, err := m.Balances.NativeBalance(ctx, address)
	if err != nil {
		log.Warnw("failed to read the native balance, leaving the ETH item unadjusted", "error", err)
		native.Amount = nil
		return
	}
	balance := eth.ToETH(weiBalance, eth.NativeDecimals)

	adjusted := eth.AmountAfterFee(*native.DraftAmount, balance, totalFee)
	if adjusted.Sign() <= 0 {
		// not enough ETH to pay for the batch, the item stays unsignable
		log.Warnw("insufficient native balance to cover fees",
			"address", address, "adjusted", adjusted.String())
		native.Amount = nil
		return
	}

	adjusted = eth.TruncateAmount(adjusted, eth.NativeDecimals)
	native.Amount = &adjusted

	// the amount changed, refresh this item's estimate
	gasLimit, err := m.GasEstimator.EstimateGas(ctx, m.callMsg(native, address, destination))
	if err != nil {
		log.Warnw("failed to re-estimate the adjusted ETH transfer", "error", err)
		return
	}
	native.CalculatedGasLimit = gasLimit
}

// callMsg builds the estimation descriptor for one transfer.
func (m *Manager) callMsg(item *models.AssetTransfer, address, destination string) ethereum.CallMsg {
	from := common.HexToAddress(address)
	dest := common.HexToAddress(destination)

	switch {
	case item.AssetData.IsCollectible():
		contract := common.HexToAddress(item.AssetData.ContractAddress)
		tokenID, _ := new(big.Int).SetString(item.AssetData.TokenID, 10)
		if tokenID == nil {
			tokenID = big.NewInt(0)
		}
		return ethereum.CallMsg{
			From: from,
			To:   &contract,
			Data: keywallet.ERC721TransferData(from, dest, tokenID),
		}
	case item.AssetData.IsNative():
		amount := item.DraftAmount
		if item.Amount != nil {
			amount = item.Amount
		}
		return ethereum.CallMsg{
			From:  from,
			To:    &dest,
			Value: eth.ToWei(amount, eth.NativeDecimals),
		}
	default:
		contract := common.HexToAddress(item.AssetData.ContractAddress)
		return ethereum.CallMsg{
			From: from,
			To:   &contract,
			Data: keywallet.ERC20TransferData(dest, eth.ToWei(item.Amount, item.AssetData.Decimals)),
		}
	}
}

// destinationFor resolves the wallet's registered smart wallet address.
func (m *Manager) destinationFor(ctx context.Context, address string) string {
	wallet, err := m.DB.GetWallet(ctx, address)
	if err != nil {
		log.Warnw("failed to look up a wallet", "address", address, "error", err)
		return ""
	}
	return wallet.SmartWalletAddress
}
