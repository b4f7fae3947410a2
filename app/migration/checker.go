package migration

import (
	"context"

	"migrator/app/models"
	"migrator/pkg/log"
)

// CheckTransactions runs one confirmation-and-submission cycle: it polls
// every broadcast transfer, removes confirmed ones, and if nothing is in
// flight broadcasts the next signed transfer. The queue draining from
// non-empty to empty emits the completion notification exactly once.
func (m *Manager) CheckTransactions(ctx context.Context, address string) error {
	q := m.queue(ctx, address)
	if !q.checking.CompareAndSwap(false, true) {
		log.Info("a check pass is already running, skipping")
		return nil
	}
	defer q.checking.Store(false)

	items := q.snapshot()
	if len(items) == 0 {
		m.notifyIfDrained(ctx, q, address)
		return nil
	}

	kept := make([]*models.AssetTransfer, 0, len(items))
	confirmed := 0
	for _, item := range items {
		// confirmed transfers leave the queue, a restored snapshot included
		if item.IsConfirmed() {
			confirmed++
			continue
		}
		if item.TransactionHash == "" {
			kept = append(kept, item)
			continue
		}

		info, err := m.ChainReader.TransactionInfo(ctx, item.TransactionHash)
		if err != nil || info == nil {
			// not known to the node yet, keep polling
			log.Warnw("failed to check a transaction", "hash", item.TransactionHash, "error", err)
			kept = append(kept, item)
			continue
		}
		if !info.Mined {
			kept = append(kept, item)
			continue
		}

		// mined: mark confirmed and drop from the queue immediately
		item.Status = models.TxStatusConfirmed
		confirmed++
		if !info.Succeeded {
			log.Warnw("a migration transaction reverted on chain", "hash", item.TransactionHash)
		}
		log.Infow("asset transfer confirmed",
			"address", address, "hash", item.TransactionHash)
	}

	q.mu.Lock()
	q.transferred += confirmed
	q.mu.Unlock()

	// at most one transfer may be in flight
	inFlight := false
	for _, item := range kept {
		if item.IsInFlight() {
			inFlight = true
			break
		}
	}

	if !inFlight {
		m.submitNext(ctx, kept)
	}

	m.setAndStore(q, address, kept)
	m.notifyIfDrained(ctx, q, address)
	return nil
}

// submitNext broadcasts the first signed transfer without a status. On
// failure the item is left untouched; the same payload is retried on the
// next cycle.
func (m *Manager) submitNext(ctx context.Context, items []*models.AssetTransfer) {
	for _, item := range items {
		if !item.IsSubmittable() {
			continue
		}

		hash, err := m.Broadcaster.SendRawTransaction(ctx, item.SignedTransaction.RawTransaction)
		if err != nil {
			log.Warnw("failed to broadcast a transfer, will retry",
				"nonce", item.SignedTransaction.Nonce, "error", err)
			return
		}

		item.Status = models.TxStatusPending
		item.TransactionHash = hash
		log.Infow("asset transfer broadcast",
			"hash", hash, "nonce", item.SignedTransaction.Nonce)
		return
	}
}

// notifyIfDrained fires the one-shot completion notification when a queue
// that held items becomes empty.
func (m *Manager) notifyIfDrained(ctx context.Context, q *transferQueue, address string) {
	q.mu.Lock()
	drained := q.hadItems && len(q.items) == 0 && !q.notified
	transferred := q.transferred
	if drained {
		q.notified = true
	}
	q.mu.Unlock()

	if !drained {
		return
	}

	log.Infow("migration completed", "address", address, "transferred", transferred)

	if err := m.DB.CompleteMigration(ctx, address, transferred); err != nil {
		log.Warnw("failed to record a completed migration", "address", address, "error", err)
	}

	m.Notifier.Notify(ctx, &models.Notification{
		ClientID: address,
		Message: &models.MigrationCompleted{
			WalletAddress:    address,
			TransferredCount: transferred,
		},
	})
}
