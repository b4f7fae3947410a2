package migration

import (
	"context"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"migrator/app/config"
	"migrator/app/keywallet"
	"migrator/app/models"
	"migrator/app/storage/database"
	"migrator/pkg/eth"
)

const (
	testAddress     = "0x90F8bf6A479f320ead074411a4B0e7944Ea8c9C1"
	testDestination = "0xFFcf8FDEE72ac11b5c542428B35EEF5769C409f0"
)

var errTest = errors.New("test failure")

type fakeDB struct {
	mu        sync.Mutex
	wallet    *database.Wallet
	walletErr error
	saved     [][]*models.AssetTransfer
	completed []int
}

func (f *fakeDB) CreateWallet(context.Context, *database.NewWallet) (*database.Wallet, error) {
	return f.wallet, nil
}

func (f *fakeDB) GetWallet(context.Context, string) (*database.Wallet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.walletErr != nil {
		return nil, f.walletErr
	}
	if f.wallet == nil {
		return nil, errors.New("wallet not found")
	}
	return f.wallet, nil
}

func (f *fakeDB) SaveTransferQueue(_ context.Context, _ string, transfers []*models.AssetTransfer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, transfers)
	return nil
}

func (f *fakeDB) GetTransferQueue(context.Context, string) ([]*models.AssetTransfer, error) {
	return nil, nil
}

func (f *fakeDB) CompleteMigration(_ context.Context, _ string, transferred int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.completed = append(f.completed, transferred)
	return nil
}

func (f *fakeDB) completedCalls() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.completed...)
}

type fakeKeyWallet struct {
	mu         sync.Mutex
	count      uint64
	countErr   error
	failTokens map[string]bool
	requests   []*keywallet.SignRequest
}

func (f *fakeKeyWallet) TransactionCount(context.Context, string) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

func (f *fakeKeyWallet) SignAssetTransfer(
	_ context.Context, req *keywallet.SignRequest,
) (*models.SignedAssetTransaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failTokens[req.AssetData.Token] {
		return nil, errors.New("signing failed")
	}

	f.requests = append(f.requests, req)
	return &models.SignedAssetTransaction{
		RawTransaction:   "0xsigned" + req.AssetData.Token,
		Nonce:            req.Nonce,
		TransactionCount: f.count,
		From:             testAddress,
		To:               req.To,
	}, nil
}

type fakeCollectibles struct {
	owned []*models.Collectible
	err   error
}

func (f *fakeCollectibles) OwnedCollectibles(context.Context, string) ([]*models.Collectible, error) {
	return f.owned, f.err
}

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []*models.Notification
}

func (f *fakeNotifier) Subscribe(context.Context, *models.NewSubscription) error {
	return nil
}

func (f *fakeNotifier) Notify(_ context.Context, n *models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notifications)
}

type fakeNode struct {
	mu sync.Mutex

	gasPrice     *big.Int
	gasPriceErr  error
	suggestCalls int

	gasLimit      uint64
	estimateErr   error
	estimateCalls int
	// when set, EstimateGas signals estimateStarted and waits for
	// estimateRelease before answering
	estimateStarted chan struct{}
	estimateRelease chan struct{}

	balance       *big.Int
	tokenBalances map[string]*big.Int

	broadcastErr error
	broadcasts   []string

	txInfo map[string]*eth.TransactionInfo
	// answer transaction lookups with a nil info and a nil error
	infoNil bool
}

func (f *fakeNode) SuggestGasPrice(context.Context) (*big.Int, error) {
	f.mu.Lock()
	f.suggestCalls++
	f.mu.Unlock()
	if f.gasPriceErr != nil {
		return nil, f.gasPriceErr
	}
	return f.gasPrice, nil
}

func (f *fakeNode) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if f.estimateStarted != nil {
		f.estimateStarted <- struct{}{}
		<-f.estimateRelease
	}

	f.mu.Lock()
	f.estimateCalls++
	f.mu.Unlock()

	if f.estimateErr != nil {
		return 0, f.estimateErr
	}
	return f.gasLimit, nil
}

func (f *fakeNode) SendRawTransaction(_ context.Context, rawTx string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.broadcastErr != nil {
		return "", f.broadcastErr
	}
	f.broadcasts = append(f.broadcasts, rawTx)
	return "0xhash" + rawTx, nil
}

func (f *fakeNode) TransactionInfo(_ context.Context, hash string) (*eth.TransactionInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.infoNil {
		return nil, nil
	}
	info, ok := f.txInfo[hash]
	if !ok {
		return nil, errors.New("transaction not found")
	}
	return info, nil
}

func (f *fakeNode) NativeBalance(context.Context, string) (*big.Int, error) {
	if f.balance == nil {
		return big.NewInt(0), nil
	}
	return f.balance, nil
}

func (f *fakeNode) TokenBalance(_ context.Context, contractAddress, _ string) (*big.Int, error) {
	balance, ok := f.tokenBalances[contractAddress]
	if !ok {
		return nil, errors.New("no balance")
	}
	return balance, nil
}

func (f *fakeNode) estimated() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.estimateCalls
}

func (f *fakeNode) suggested() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestCalls
}

func (f *fakeNode) broadcastCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.broadcasts)
}

func (f *fakeNode) mineTx(hash string, succeeded bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.txInfo == nil {
		f.txInfo = make(map[string]*eth.TransactionInfo)
	}
	f.txInfo[hash] = &eth.TransactionInfo{Hash: hash, Mined: true, Succeeded: succeeded}
}

func newTestManager(db *fakeDB, node *fakeNode, kw *fakeKeyWallet, coll *fakeCollectibles, notif *fakeNotifier) *Manager {
	return &Manager{
		Config: config.Migration{
			CheckIntervalSec: 1,
			CollectibleGas:   450000,
		},
		DB:           db,
		KeyWallet:    kw,
		Collectibles: coll,
		Notifier:     notif,
		GasOracle:    node,
		GasEstimator: node,
		Broadcaster:  node,
		ChainReader:  node,
		Balances:     node,
	}
}

func registeredWallet() *database.Wallet {
	return &database.Wallet{
		NewWallet: database.NewWallet{
			Address:            testAddress,
			SmartWalletAddress: testDestination,
		},
	}
}

func ethAsset() *models.AssetData {
	return &models.AssetData{Token: models.NativeSymbol, Decimals: 18, TokenType: models.AssetTypeToken}
}

func tokenAsset(symbol string) *models.AssetData {
	return &models.AssetData{
		Token:           symbol,
		ContractAddress: "0x22d491Bde2303f2f43325b2108D26f1eAbA1e32b",
		Decimals:        18,
		TokenType:       models.AssetTypeToken,
	}
}

func collectibleAsset(tokenID string) *models.AssetData {
	return &models.AssetData{
		Name:            "CryptoThing",
		ContractAddress: "0xE11BA2b4D45Eaed5996Cd0823791E0C93114882d",
		TokenType:       models.AssetTypeCollectible,
		TokenID:         tokenID,
	}
}

func mustDecimal(s string) *decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return &d
}

func findBySymbol(t *testing.T, items []*models.AssetTransfer, symbol string) *models.AssetTransfer {
	t.Helper()
	for _, item := range items {
		if item.AssetData.Token == symbol {
			return item
		}
	}
	t.Fatalf("no %s item in the queue", symbol)
	return nil
}
