package migration

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/pkg/errors"

	"migrator/app/models"
)

func TestAddAndRemoveAssets(t *testing.T) {
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, &fakeNode{}, &fakeKeyWallet{}, &fakeCollectibles{}, &fakeNotifier{})
	ctx := context.Background()

	add := func(asset *models.AssetData, draft string) {
		t.Helper()
		if _, err := m.AddAsset(ctx, &models.AddAsset{
			WalletAddress: testAddress,
			AssetData:     asset,
			DraftAmount:   draft,
		}); err != nil {
			t.Fatalf("unexpected add error: %v", err)
		}
	}

	add(ethAsset(), "1.5")
	add(tokenAsset("PLR"), "100")
	add(collectibleAsset("42"), "")
	add(tokenAsset("PLR"), "50") // duplicates are allowed

	items, err := m.ListAssets(ctx, testAddress)
	if err != nil {
		t.Fatalf("unexpected list error: %v", err)
	}
	if len(items) != 4 {
		t.Fatalf("expected 4 queued items, have %d", len(items))
	}

	// removing by symbol drops every matching fungible entry
	items, err = m.RemoveAsset(ctx, &models.RemoveAsset{
		WalletAddress: testAddress,
		AssetData:     tokenAsset("PLR"),
	})
	if err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items after removing PLR, have %d", len(items))
	}
	for _, item := range items {
		if item.AssetData.Token == "PLR" {
			t.Fatal("a PLR item survived removal")
		}
	}

	// collectible removal matches contract address case-insensitively
	lowered := collectibleAsset("42")
	lowered.ContractAddress = "0xe11ba2b4d45eaed5996cd0823791e0c93114882d"
	items, err = m.RemoveAsset(ctx, &models.RemoveAsset{
		WalletAddress: testAddress,
		AssetData:     lowered,
	})
	if err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item after removing the collectible, have %d", len(items))
	}

	// a different token id is a different collectible, removal is a no-op
	items, err = m.RemoveAsset(ctx, &models.RemoveAsset{
		WalletAddress: testAddress,
		AssetData:     collectibleAsset("43"),
	})
	if err != nil {
		t.Fatalf("unexpected remove error: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected removal of a non-member to keep the queue intact, have %d items", len(items))
	}
}

func TestAddAssetValidation(t *testing.T) {
	m := newTestManager(&fakeDB{}, &fakeNode{}, &fakeKeyWallet{}, &fakeCollectibles{}, &fakeNotifier{})

	_, err := m.AddAsset(context.Background(), &models.AddAsset{
		WalletAddress: testAddress,
		AssetData:     &models.AssetData{Token: "PLR", ContractAddress: "not-an-address"},
	})
	if err == nil {
		t.Fatal("expected an invalid contract address to be rejected")
	}

	_, err = m.AddAsset(context.Background(), &models.AddAsset{
		WalletAddress: testAddress,
		AssetData:     tokenAsset("PLR"),
		DraftAmount:   "-5",
	})
	if err == nil {
		t.Fatal("expected a negative draft amount to be rejected")
	}
}

func TestCheckEligibility(t *testing.T) {
	node := &fakeNode{
		balance: big.NewInt(2e18), // 2 ETH
		tokenBalances: map[string]*big.Int{
			tokenAsset("PLR").ContractAddress: big.NewInt(5e18),
		},
	}
	coll := &fakeCollectibles{owned: []*models.Collectible{
		{ContractAddress: collectibleAsset("7").ContractAddress, TokenID: "7"},
	}}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, node, &fakeKeyWallet{}, coll, &fakeNotifier{})

	out, err := m.CheckEligibility(context.Background(), testAddress, []*models.AssetData{
		ethAsset(), tokenAsset("PLR"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !out.Eligible {
		t.Fatal("expected the wallet to be eligible")
	}
	if out.CollectibleFetchFailed {
		t.Fatal("collectible fetch did not fail")
	}
	if out.Balances[models.NativeSymbol] != 2 {
		t.Fatalf("expected a 2 ETH balance, have %v", out.Balances[models.NativeSymbol])
	}
	if out.Balances["PLR"] != 5 {
		t.Fatalf("expected a 5 PLR balance, have %v", out.Balances["PLR"])
	}
	if len(out.Collectibles) != 1 {
		t.Fatalf("expected 1 collectible, have %d", len(out.Collectibles))
	}
}

func TestCheckEligibilityCollectibleFailure(t *testing.T) {
	node := &fakeNode{balance: big.NewInt(1e18)}
	coll := &fakeCollectibles{err: errors.New("registry down")}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, node, &fakeKeyWallet{}, coll, &fakeNotifier{})

	out, err := m.CheckEligibility(context.Background(), testAddress, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// a registry outage must be distinguishable from owning nothing
	if !out.CollectibleFetchFailed {
		t.Fatal("expected the collectible fetch failure to be surfaced")
	}
	if out.Collectibles == nil || len(out.Collectibles) != 0 {
		t.Fatalf("expected an empty collectible list, have %v", out.Collectibles)
	}
	if !out.Eligible {
		t.Fatal("the ETH balance alone keeps the wallet eligible")
	}
}

func TestListAssetsReturnsDetachedCopies(t *testing.T) {
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, &fakeNode{}, &fakeKeyWallet{}, &fakeCollectibles{}, &fakeNotifier{})
	ctx := context.Background()

	if _, err := m.AddAsset(ctx, &models.AddAsset{
		WalletAddress: testAddress,
		AssetData:     tokenAsset("PLR"),
		DraftAmount:   "10",
	}); err != nil {
		t.Fatalf("unexpected add error: %v", err)
	}

	items, _ := m.ListAssets(ctx, testAddress)
	items[0].Status = models.TxStatusConfirmed
	items[0].AssetData.Token = "XXX"
	*items[0].DraftAmount = *mustDecimal("0")

	fresh, _ := m.ListAssets(ctx, testAddress)
	if fresh[0].Status != "" || fresh[0].AssetData.Token != "PLR" || fresh[0].DraftAmount.String() != "10" {
		t.Fatal("mutating a listed transfer leaked into the stored queue")
	}
}

func TestListAssetsDuringEstimation(t *testing.T) {
	node := &fakeNode{
		gasPrice:        big.NewInt(50e9),
		gasLimit:        21000,
		balance:         big.NewInt(1e18),
		estimateStarted: make(chan struct{}),
		estimateRelease: make(chan struct{}),
	}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, node, &fakeKeyWallet{}, &fakeCollectibles{}, &fakeNotifier{})

	queueItems(m, &models.AssetTransfer{AssetData: tokenAsset("PLR"), DraftAmount: mustDecimal("1")})

	done := make(chan struct{})
	go func() {
		_ = m.EstimateTransfers(context.Background(), testAddress)
		close(done)
	}()
	<-node.estimateStarted

	// the estimation pass works on its own copies, reads stay safe while
	// it runs
	for i := 0; i < 10; i++ {
		if _, err := m.ListAssets(context.Background(), testAddress); err != nil {
			t.Fatalf("unexpected list error: %v", err)
		}
	}

	close(node.estimateRelease)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("the estimation pass never finished")
	}
}

func TestMigrationStatusCompletedSurvivesRestart(t *testing.T) {
	migrated := time.Now()
	wallet := registeredWallet()
	wallet.MigratedAt = &migrated
	wallet.TransferredCount = 2

	notif := &fakeNotifier{}
	db := &fakeDB{wallet: wallet}
	m := newTestManager(db, &fakeNode{}, &fakeKeyWallet{}, &fakeCollectibles{}, notif)

	status, err := m.MigrationStatus(context.Background(), testAddress)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !status.Completed {
		t.Fatal("a recorded migration must stay completed after a restart")
	}

	// background checks on the drained queue must not repeat the
	// completion notification
	if err := m.CheckTransactions(context.Background(), testAddress); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notif.count() != 0 {
		t.Fatalf("expected no repeated notification, have %d", notif.count())
	}
	if calls := db.completedCalls(); len(calls) != 0 {
		t.Fatalf("expected no repeated completion write, have %v", calls)
	}
}

func TestCheckEligibilityEmptyFetchIsNotFailure(t *testing.T) {
	node := &fakeNode{balance: big.NewInt(1e18)}
	coll := &fakeCollectibles{owned: []*models.Collectible{}}
	m := newTestManager(&fakeDB{wallet: registeredWallet()}, node, &fakeKeyWallet{}, coll, &fakeNotifier{})

	out, err := m.CheckEligibility(context.Background(), testAddress, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.CollectibleFetchFailed {
		t.Fatal("an empty collectible list is not a fetch failure")
	}
}
