package migration

import (
	"context"
	"sync"
	"sync/atomic"

	"migrator/app/collectibles"
	"migrator/app/config"
	"migrator/app/keywallet"
	"migrator/app/models"
	"migrator/app/notifier"
	"migrator/app/storage/database"
	"migrator/pkg/eth"
	"migrator/pkg/log"
)

// transferQueue is the migration state of one wallet. Items are ordered,
// drained front to back, and removed once confirmed.
type transferQueue struct {
	mu    sync.Mutex
	items []*models.AssetTransfer

	// reentrancy guards, one per pipeline phase
	estimating atomic.Bool
	signing    atomic.Bool
	checking   atomic.Bool

	hadItems    bool // the queue has been non-empty at least once
	notified    bool // the completion notification was already sent
	transferred int  // confirmed transfers so far
}

// snapshot deep-copies the queue. The mutex guards only the slice; pipeline
// passes mutate their own copies and swap them back in via setAndStore, so
// stored items are never written in place.
func (q *transferQueue) snapshot() []*models.AssetTransfer {
	q.mu.Lock()
	defer q.mu.Unlock()
	return cloneTransfers(q.items)
}

func cloneTransfers(items []*models.AssetTransfer) []*models.AssetTransfer {
	clones := make([]*models.AssetTransfer, len(items))
	for i, item := range items {
		clones[i] = item.Clone()
	}
	return clones
}

type Manager struct {
	Config       config.Migration
	DB           database.Database
	KeyWallet    keywallet.Service
	Collectibles collectibles.Service
	Notifier     notifier.Service
	GasOracle    GasOracle
	GasEstimator GasEstimator
	Broadcaster  Broadcaster
	ChainReader  ChainReader
	Balances     BalanceReader

	mu     sync.Mutex
	queues map[string]*transferQueue
}

// queue returns the wallet's queue, restoring a stored snapshot on first
// access after a restart.
func (m *Manager) queue(ctx context.Context, address string) *transferQueue {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.queues == nil {
		m.queues = make(map[string]*transferQueue)
	}

	q, ok := m.queues[address]
	if ok {
		return q
	}

	q = new(transferQueue)
	if stored, err := m.DB.GetTransferQueue(ctx, address); err != nil {
		log.Warnw("failed to restore a transfer queue snapshot", "address", address, "error", err)
	} else if len(stored) > 0 {
		q.items = stored
		q.hadItems = true
	}

	// a migration completed before a restart stays completed
	if wallet, err := m.DB.GetWallet(ctx, address); err == nil && wallet.MigratedAt != nil {
		q.hadItems = true
		q.notified = true
		q.transferred = wallet.TransferredCount
	}

	m.queues[address] = q
	return q
}

func (m *Manager) AddAsset(ctx context.Context, req *models.AddAsset) ([]*models.AssetTransfer, error) {
	log.AddFields(ctx, "add asset for", req.WalletAddress)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := m.queue(ctx, req.WalletAddress)
	q.mu.Lock()
	// duplicates are allowed, the caller de-duplicates in its asset picker
	q.items = append(q.items, &models.AssetTransfer{
		AssetData:   req.AssetData,
		DraftAmount: req.DraftAmountDecimal(),
	})
	q.hadItems = true
	items := cloneTransfers(q.items)
	q.mu.Unlock()

	m.store(req.WalletAddress, items)
	return items, nil
}

func (m *Manager) RemoveAsset(ctx context.Context, req *models.RemoveAsset) ([]*models.AssetTransfer, error) {
	log.AddFields(ctx, "remove asset for", req.WalletAddress)

	if err := req.Validate(); err != nil {
		return nil, err
	}

	q := m.queue(ctx, req.WalletAddress)
	q.mu.Lock()
	kept := q.items[:0]
	for _, item := range q.items {
		if item.AssetData.Matches(req.AssetData) {
			continue
		}
		kept = append(kept, item)
	}
	q.items = kept
	items := cloneTransfers(q.items)
	q.mu.Unlock()

	m.store(req.WalletAddress, items)
	return items, nil
}

func (m *Manager) ListAssets(ctx context.Context, address string) ([]*models.AssetTransfer, error) {
	return m.queue(ctx, address).snapshot(), nil
}

// setAndStore replaces the queue and persists the snapshot. Persistence is
// fire and forget; a storage failure never blocks the in-memory state.
func (m *Manager) setAndStore(q *transferQueue, address string, items []*models.AssetTransfer) {
	q.mu.Lock()
	q.items = items
	if len(items) > 0 {
		q.hadItems = true
	}
	q.mu.Unlock()

	m.store(address, items)
}

func (m *Manager) store(address string, items []*models.AssetTransfer) {
	go func() {
		if err := m.DB.SaveTransferQueue(context.Background(), address, items); err != nil {
			log.Warnw("failed to persist a transfer queue", "address", address, "error", err)
		}
	}()
}

// CheckEligibility reports positive balances and owned collectibles for the
// source wallet. A collectible registry failure is logged and surfaced but
// does not block the balance part of the check.
func (m *Manager) CheckEligibility(
	ctx context.Context, address string, supported []*models.AssetData,
) (*models.MigrationEligibility, error) {
	log.AddFields(ctx, "check eligibility for", address)

	result := &models.MigrationEligibility{
		Balances: make(map[string]float64),
	}

	weiBalance, err := m.Balances.NativeBalance(ctx, address)
	if err != nil {
		return nil, err
	}
	if ethBalance, _ := eth.ToETH(weiBalance, eth.NativeDecimals).Float64(); ethBalance > 0 {
		result.Balances[models.NativeSymbol] = ethBalance
	}

	for _, asset := range supported {
		if asset == nil || asset.IsCollectible() || asset.IsNative() {
			continue
		}

		raw, err := m.Balances.TokenBalance(ctx, asset.ContractAddress, address)
		if err != nil {
			// missing balance reads as zero
			log.Warnw("failed to read a token balance", "token", asset.Token, "error", err)
			continue
		}
		if balance, _ := eth.ToETH(raw, asset.Decimals).Float64(); balance > 0 {
			result.Balances[asset.Token] = balance
		}
	}

	owned, err := m.Collectibles.OwnedCollectibles(ctx, address)
	if err != nil || owned == nil {
		log.Warnw("failed to fetch owned collectibles", "address", address, "error", err)
		result.CollectibleFetchFailed = true
		owned = []*models.Collectible{}
	}
	result.Collectibles = owned

	result.Eligible = len(result.Balances) > 0 || len(result.Collectibles) > 0
	return result, nil
}

func (m *Manager) MigrationStatus(ctx context.Context, address string) (*models.MigrationStatus, error) {
	q := m.queue(ctx, address)

	status := &models.MigrationStatus{
		Transfers:  q.snapshot(),
		Estimating: q.estimating.Load(),
		Signing:    q.signing.Load(),
	}

	for _, item := range status.Transfers {
		if item.IsInFlight() {
			status.InFlight = item.TransactionHash
			break
		}
	}

	q.mu.Lock()
	status.Completed = q.hadItems && len(q.items) == 0
	q.mu.Unlock()

	return status, nil
}
