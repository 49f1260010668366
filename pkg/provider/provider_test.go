package provider

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xmhha/sso-session/pkg/eip712"
	"github.com/0xmhha/sso-session/pkg/logger"
)

// fakeEth serves the eth namespace in-process.
type fakeEth struct {
	mu           sync.Mutex
	estimateArgs map[string]interface{}
	callArgs     map[string]interface{}
	raw          hexutil.Bytes
	receipts     map[common.Hash]*types.Receipt
	noBlock      bool
}

func (f *fakeEth) ChainId() *hexutil.Big { return (*hexutil.Big)(big.NewInt(260)) }

func (f *fakeEth) GetTransactionCount(addr common.Address, tag string) (hexutil.Uint64, error) {
	if tag != "pending" {
		return 0, errors.New("unexpected block tag " + tag)
	}
	return 7, nil
}

func (f *fakeEth) EstimateGas(args map[string]interface{}) hexutil.Uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estimateArgs = args
	return 123456
}

func (f *fakeEth) GasPrice() *hexutil.Big { return (*hexutil.Big)(big.NewInt(25e7)) }

func (f *fakeEth) GetBlockByNumber(tag string, full bool) map[string]interface{} {
	if f.noBlock {
		return nil
	}
	return map[string]interface{}{"number": "0x10", "timestamp": hexutil.Uint64(1714500000)}
}

func (f *fakeEth) Call(args map[string]interface{}, tag string) hexutil.Bytes {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callArgs = args
	return hexutil.Bytes{0xca, 0xfe}
}

func (f *fakeEth) SendRawTransaction(raw hexutil.Bytes) common.Hash {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = raw
	return common.HexToHash("0xbeef")
}

func (f *fakeEth) GetTransactionReceipt(hash common.Hash) *types.Receipt {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts[hash]
}

func newTestProvider(t *testing.T, svc *fakeEth) Provider {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	t.Cleanup(server.Stop)

	p := NewFromClient(rpc.DialInProc(server), logger.Noop())
	t.Cleanup(p.Close)
	return p
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(context.Background(), Config{}, logger.Noop())
	assert.ErrorIs(t, err, ErrEmptyURL)
}

func TestSimpleQueries(t *testing.T) {
	ctx := context.Background()
	p := newTestProvider(t, &fakeEth{})

	chainID, err := p.ChainID(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(260), chainID.Int64())

	nonce, err := p.PendingNonce(ctx, common.HexToAddress("0x01"))
	require.NoError(t, err)
	assert.Equal(t, int64(7), nonce.Int64())

	price, err := p.GasPrice(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(25e7), price.Int64())

	ts, err := p.LatestBlockTimestamp(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1714500000), ts)
}

func TestLatestBlockMissing(t *testing.T) {
	p := newTestProvider(t, &fakeEth{noBlock: true})

	_, err := p.LatestBlockTimestamp(context.Background())
	assert.ErrorIs(t, err, ErrBlockNotFound)
}

func TestEstimateGasSendsEIP712Meta(t *testing.T) {
	svc := &fakeEth{}
	p := newTestProvider(t, svc)

	tx := &eip712.Transaction{
		ChainID:         big.NewInt(260),
		From:            common.HexToAddress("0x01"),
		To:              common.HexToAddress("0x02"),
		Value:           big.NewInt(5),
		Data:            []byte{0xab},
		CustomSignature: []byte{1, 2},
		FactoryDeps:     [][]byte{{3}},
		Paymaster:       common.HexToAddress("0x03"),
		PaymasterInput:  []byte{9},
	}

	gas, err := p.EstimateGas(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, int64(123456), gas.Int64())

	svc.mu.Lock()
	defer svc.mu.Unlock()

	assert.Equal(t, "0x71", svc.estimateArgs["type"])
	assert.Equal(t, "0x5", svc.estimateArgs["value"])
	assert.Equal(t, "0xab", svc.estimateArgs["data"])

	meta, ok := svc.estimateArgs["eip712Meta"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "0xc350", meta["gasPerPubdata"])
	assert.Equal(t, []interface{}{float64(1), float64(2)}, meta["customSignature"])
	assert.Equal(t, []interface{}{[]interface{}{float64(3)}}, meta["factoryDeps"])

	paymaster, ok := meta["paymasterParams"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{float64(9)}, paymaster["paymasterInput"])
}

func TestCall(t *testing.T) {
	svc := &fakeEth{}
	p := newTestProvider(t, svc)

	out, err := p.Call(context.Background(), common.HexToAddress("0x0a"), []byte{1, 2, 3, 4})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xca, 0xfe}, out)

	svc.mu.Lock()
	defer svc.mu.Unlock()
	assert.Equal(t, "0x01020304", svc.callArgs["data"])
}

func TestSendAndReceipt(t *testing.T) {
	hash := common.HexToHash("0xbeef")
	svc := &fakeEth{receipts: map[common.Hash]*types.Receipt{}}
	p := newTestProvider(t, svc)
	ctx := context.Background()

	sent, err := p.SendRawTransaction(ctx, []byte{0x71, 0xc0})
	require.NoError(t, err)
	assert.Equal(t, hash, sent)
	assert.Equal(t, hexutil.Bytes{0x71, 0xc0}, svc.raw)

	_, err = p.TransactionReceipt(ctx, hash)
	assert.ErrorIs(t, err, ErrReceiptNotFound)

	svc.mu.Lock()
	svc.receipts[hash] = &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      hash,
		GasUsed:     21000,
		BlockNumber: big.NewInt(16),
		Logs:        []*types.Log{},
	}
	svc.mu.Unlock()

	receipt, err := p.TransactionReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, receipt.Status)
	assert.Equal(t, uint64(21000), receipt.GasUsed)
	assert.Equal(t, hash, receipt.TxHash)
}
