package migration

import (
	"context"
	"time"

	"migrator/pkg/log"
)

// Watch periodically runs a check cycle for every wallet with queued
// transfers until stop is closed. Run it in its own goroutine.
func (m *Manager) Watch(stop <-chan struct{}) {
	interval := time.Duration(m.Config.CheckIntervalSec) * time.Second
	log.Infow("starting the transfer watcher", "interval", interval.String())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, address := range m.activeWallets() {
				if err := m.CheckTransactions(context.Background(), address); err != nil {
					log.Warnw("transfer check cycle failed", "address", address, "error", err)
				}
			}
		case <-stop:
			log.Info("stopping the transfer watcher")
			return
		}
	}
}

// activeWallets lists wallets that still have queued transfers.
func (m *Manager) activeWallets() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	addresses := make([]string, 0, len(m.queues))
	for address, q := range m.queues {
		q.mu.Lock()
		active := len(q.items) > 0
		q.mu.Unlock()
		if active {
			addresses = append(addresses, address)
		}
	}
	return addresses
}
