package eth

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"golang.org/x/crypto/sha3"
)

var (
	balanceOfMethodID []byte
)

func init() {
	balanceOfSignature := []byte("balanceOf(address)")
	hash := sha3.NewLegacyKeccak256()
	hash.Write(balanceOfSignature)
	balanceOfMethodID = hash.Sum(nil)[:4]
}

// TransactionInfo is what the chain knows about a broadcast transaction.
type TransactionInfo struct {
	Hash      string
	IsPending bool
	Mined     bool
	Succeeded bool
}

// Client wraps a node connection with the calls the migration core needs.
type Client struct {
	Eth *ethclient.Client
	Rpc *rpc.Client
}

func Dial(rawurl string) (*Client, error) {
	rpcClient, err := rpc.DialContext(context.Background(), rawurl)
	if err != nil {
		return nil, errors.Wrap(err, "failed to dial the node")
	}
	return &Client{
		Eth: ethclient.NewClient(rpcClient),
		Rpc: rpcClient,
	}, nil
}

func (c *Client) Close() {
	c.Rpc.Close()
}

// SuggestGasPrice acts as the gas price oracle for the whole batch.
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	gasPrice, err := c.Eth.SuggestGasPrice(ctx)
	return gasPrice, errors.Wrap(err, "failed to suggest gas price")
}

func (c *Client) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	gasLimit, err := c.Eth.EstimateGas(ctx, msg)
	return gasLimit, errors.Wrap(err, "failed to estimate gas")
}

// PendingTransactionCount returns the account nonce including mempool transactions.
func (c *Client) PendingTransactionCount(ctx context.Context, address string) (uint64, error) {
	count, err := c.Eth.PendingNonceAt(ctx, common.HexToAddress(address))
	return count, errors.Wrap(err, "failed to retrieve account transaction count")
}

func (c *Client) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	var txHash common.Hash
	if err := c.Rpc.CallContext(ctx, &txHash, "eth_sendRawTransaction", rawTx); err != nil {
		return "", errors.Wrap(err, "failed to send a raw transaction")
	}
	return txHash.String(), nil
}

// TransactionInfo reports whether a transaction is still in the mempool or mined.
// A transaction unknown to the node returns an error.
func (c *Client) TransactionInfo(ctx context.Context, hash string) (*TransactionInfo, error) {
	_, isPending, err := c.Eth.TransactionByHash(ctx, common.HexToHash(hash))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get tx by hash")
	}

	info := &TransactionInfo{
		Hash:      hash,
		IsPending: isPending,
	}
	if isPending {
		return info, nil
	}

	rcpt, err := c.Eth.TransactionReceipt(ctx, common.HexToHash(hash))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get transaction receipt")
	}
	if rcpt == nil {
		return nil, errors.New("empty transaction receipt")
	}
	info.Mined = true
	info.Succeeded = rcpt.Status > 0
	return info, nil
}

func (c *Client) NativeBalance(ctx context.Context, address string) (*big.Int, error) {
	balance, err := c.Eth.BalanceAt(ctx, common.HexToAddress(address), nil)
	return balance, errors.Wrap(err, "failed to retrieve account balance")
}

// TokenBalance calls balanceOf(address) on an ERC-20 contract.
func (c *Client) TokenBalance(ctx context.Context, contractAddress, address string) (*big.Int, error) {
	contract := common.HexToAddress(contractAddress)

	var input []byte
	input = append(input, balanceOfMethodID...)
	input = append(input, common.LeftPadBytes(common.HexToAddress(address).Bytes(), 32)...)

	output, err := c.Eth.CallContract(ctx, ethereum.CallMsg{To: &contract, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to call balanceOf")
	}
	if len(output) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(output), nil
}

func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	chainID, err := c.Eth.ChainID(ctx)
	return chainID, errors.Wrap(err, "failed to retrieve chain id")
}

// EncodeRawTransaction renders signed transaction bytes the way
// eth_sendRawTransaction expects them.
func EncodeRawTransaction(txBytes []byte) string {
	return hexutil.Encode(txBytes)
}
