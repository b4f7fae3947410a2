package keywallet

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"

	"migrator/app/config"
	"migrator/app/models"
	"migrator/pkg/eth"
	"migrator/pkg/log"
)

var (
	transferMethodID     []byte
	transferFromMethodID []byte
)

func init() {
	transferMethodID = methodID("transfer(address,uint256)")
	transferFromMethodID = methodID("transferFrom(address,address,uint256)")
}

func methodID(signature string) []byte {
	hash := sha3.NewLegacyKeccak256()
	hash.Write([]byte(signature))
	return hash.Sum(nil)[:4]
}

// Manager signs ETH, ERC20 and ERC721 transfers locally. The private key
// arrives with each request and is never persisted.
type Manager struct {
	EthConfig config.Ethereum
	EthClient *eth.Client
}

func (m *Manager) TransactionCount(ctx context.Context, address string) (uint64, error) {
	return m.EthClient.PendingTransactionCount(ctx, address)
}

func (m *Manager) SignAssetTransfer(
	ctx context.Context, req *SignRequest,
) (*models.SignedAssetTransaction, error) {
	if req.AssetData == nil {
		return nil, errors.New("empty asset data provided")
	}

	privateKey, err := crypto.HexToECDSA(req.PrivateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to convert private key to ecdsa")
	}
	fromAddr := crypto.PubkeyToAddress(privateKey.PublicKey)

	log.AddFields(ctx,
		"sign from", fromAddr.String(),
		"sign asset", req.AssetData.Token,
		"sign nonce", req.Nonce,
	)

	var tx *types.Transaction
	switch {
	case req.AssetData.IsCollectible():
		tx, err = collectibleTransaction(req, fromAddr)
	case req.AssetData.IsNative():
		tx, err = nativeTransaction(req)
	default:
		tx, err = tokenTransaction(req)
	}
	if err != nil {
		return nil, err
	}

	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(big.NewInt(m.EthConfig.ChainID)), privateKey)
	if err != nil {
		return nil, errors.Wrap(err, "failed to sign an asset transfer")
	}

	txBytes, err := signedTx.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode a signed transaction")
	}

	count, err := m.EthClient.PendingTransactionCount(ctx, fromAddr.String())
	if err != nil {
		return nil, err
	}

	return &models.SignedAssetTransaction{
		RawTransaction:   eth.EncodeRawTransaction(txBytes),
		Nonce:            req.Nonce,
		TransactionCount: count,
		From:             fromAddr.String(),
		To:               req.To,
	}, nil
}

// ERC20TransferData encodes transfer(to, amount) calldata.
func ERC20TransferData(to common.Address, amount *big.Int) []byte {
	var input []byte
	input = append(input, transferMethodID...)
	input = append(input, common.LeftPadBytes(to.Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(amount.Bytes(), 32)...)
	return input
}

// ERC721TransferData encodes transferFrom(from, to, tokenId) calldata.
func ERC721TransferData(from, to common.Address, tokenID *big.Int) []byte {
	var input []byte
	input = append(input, transferFromMethodID...)
	input = append(input, common.LeftPadBytes(from.Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(to.Bytes(), 32)...)
	input = append(input, common.LeftPadBytes(tokenID.Bytes(), 32)...)
	return input
}

// collectibleTransaction builds transferFrom(from, to, tokenId) against the
// collectible contract.
func collectibleTransaction(req *SignRequest, fromAddr common.Address) (*types.Transaction, error) {
	tokenID, ok := new(big.Int).SetString(req.AssetData.TokenID, 10)
	if !ok {
		return nil, errors.New("invalid collectible token id provided")
	}

	input := ERC721TransferData(fromAddr, common.HexToAddress(req.To), tokenID)
	contract := common.HexToAddress(req.AssetData.ContractAddress)
	return types.NewTransaction(req.Nonce, contract, big.NewInt(0), req.GasLimit, req.GasPrice, input), nil
}

func nativeTransaction(req *SignRequest) (*types.Transaction, error) {
	if req.Amount == nil {
		return nil, errors.New("empty amount provided for a native transfer")
	}
	wei := eth.ToWei(req.Amount, eth.NativeDecimals)

	toAddr := common.HexToAddress(req.To)
	var data []byte
	return types.NewTransaction(req.Nonce, toAddr, wei, req.GasLimit, req.GasPrice, data), nil
}

// tokenTransaction builds transfer(to, amount) in the token's smallest units.
func tokenTransaction(req *SignRequest) (*types.Transaction, error) {
	if req.Amount == nil {
		return nil, errors.New("empty amount provided for a token transfer")
	}
	wei := eth.ToWei(req.Amount, req.AssetData.Decimals)

	input := ERC20TransferData(common.HexToAddress(req.To), wei)
	contract := common.HexToAddress(req.AssetData.ContractAddress)
	return types.NewTransaction(req.Nonce, contract, big.NewInt(0), req.GasLimit, req.GasPrice, input), nil
}
