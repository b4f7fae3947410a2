package migration

import (
	"context"
	"testing"

	"migrator/app/models"
)

func estimatedTransfer(asset *models.AssetData, amount string) *models.AssetTransfer {
	item := &models.AssetTransfer{
		AssetData:          asset,
		CalculatedGasLimit: 21000,
		GasPrice:           "50000000000",
	}
	if amount != "" {
		item.DraftAmount = mustDecimal(amount)
		item.Amount = mustDecimal(amount)
	}
	return item
}

func TestSignTransfersNonceMonotonicity(t *testing.T) {
	kw := &fakeKeyWallet{count: 7, failTokens: map[string]bool{"BAD": true}}
	node := &fakeNode{}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, node, kw, &fakeCollectibles{}, &fakeNotifier{})

	queueItems(m,
		estimatedTransfer(ethAsset(), "1"),
		estimatedTransfer(tokenAsset("BAD"), "5"),
		estimatedTransfer(tokenAsset("PLR"), "10"),
		estimatedTransfer(collectibleAsset("42"), ""),
	)

	out, err := m.SignTransfers(context.Background(), &models.StartMigration{
		WalletAddress: testAddress,
		PrivateKey:    "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.SignedCount != 3 {
		t.Fatalf("expected 3 signed transfers, have %d", out.SignedCount)
	}
	if len(out.DroppedAssets) != 1 || out.DroppedAssets[0] != "BAD" {
		t.Fatalf("expected the failed item to be reported as dropped, have %v", out.DroppedAssets)
	}

	// failed signatures consume no nonce: the survivors get 7, 8, 9
	wantNonces := []uint64{7, 8, 9}
	if len(kw.requests) != len(wantNonces) {
		t.Fatalf("expected %d sign requests, have %d", len(wantNonces), len(kw.requests))
	}
	for i, req := range kw.requests {
		if req.Nonce != wantNonces[i] {
			t.Fatalf("request %d: expected nonce %d, have %d", i, wantNonces[i], req.Nonce)
		}
		if req.To != testDestination {
			t.Fatalf("request %d: expected the smart wallet destination, have %s", i, req.To)
		}
	}

	// the dropped item left the queue
	items, _ := m.ListAssets(context.Background(), testAddress)
	for _, item := range items {
		if item.AssetData.Token == "BAD" {
			t.Fatal("the dropped item is still queued")
		}
	}
}

func TestSignTransfersDropsUnestimatedItems(t *testing.T) {
	kw := &fakeKeyWallet{count: 0}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, &fakeNode{}, kw, &fakeCollectibles{}, &fakeNotifier{})

	// never estimated: no final amount, no gas price
	queueItems(m, &models.AssetTransfer{AssetData: tokenAsset("PLR"), DraftAmount: mustDecimal("5")})

	out, err := m.SignTransfers(context.Background(), &models.StartMigration{
		WalletAddress: testAddress,
		PrivateKey:    "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.SignedCount != 0 {
		t.Fatalf("expected nothing signed, have %d", out.SignedCount)
	}
	if len(out.DroppedAssets) != 1 {
		t.Fatalf("expected the unestimated item to be dropped, have %v", out.DroppedAssets)
	}
}

func TestSignTransfersTriggersSubmission(t *testing.T) {
	kw := &fakeKeyWallet{count: 3}
	node := &fakeNode{}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, node, kw, &fakeCollectibles{}, &fakeNotifier{})

	queueItems(m,
		estimatedTransfer(tokenAsset("PLR"), "10"),
		estimatedTransfer(ethAsset(), "1"),
	)

	if _, err := m.SignTransfers(context.Background(), &models.StartMigration{
		WalletAddress: testAddress,
		PrivateKey:    "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// the signing pass immediately broadcasts the first transfer, FIFO
	if node.broadcastCount() != 1 {
		t.Fatalf("expected exactly one broadcast, have %d", node.broadcastCount())
	}

	items, _ := m.ListAssets(context.Background(), testAddress)
	if !items[0].IsInFlight() {
		t.Fatal("expected the first transfer to be in flight")
	}
	if items[1].Status != "" {
		t.Fatalf("expected the second transfer to wait, have status %q", items[1].Status)
	}
}

func TestSignTransfersSkipsWhenNonceSyncFails(t *testing.T) {
	kw := &fakeKeyWallet{countErr: errTest}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, &fakeNode{}, kw, &fakeCollectibles{}, &fakeNotifier{})

	queueItems(m, estimatedTransfer(tokenAsset("PLR"), "10"))

	out, err := m.SignTransfers(context.Background(), &models.StartMigration{
		WalletAddress: testAddress,
		PrivateKey:    "4f3edf983ac636a65a842ce7c78d9aa706d3b113bce9c46f30d7d21715b23b1d",
	})
	if err != nil {
		t.Fatalf("expected a silent no-op, have error: %v", err)
	}
	if out.SignedCount != 0 || len(out.DroppedAssets) != 0 {
		t.Fatal("expected the queue to stay untouched when the nonce sync fails")
	}

	items, _ := m.ListAssets(context.Background(), testAddress)
	if len(items) != 1 || items[0].SignedTransaction != nil {
		t.Fatal("expected the item to stay unsigned")
	}
}
