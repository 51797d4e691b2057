package contract

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

type fakeBackend struct {
	mu        sync.Mutex
	chainID   *big.Int
	calls     map[string][]byte // method id -> return data
	sent      []*types.Transaction
	pending   int // receipts reported as not found before success
	status    uint64
	logs      []*types.Log
	callsSeen []ethereum.CallMsg
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		chainID: big.NewInt(11155111),
		calls:   map[string][]byte{},
		status:  types.ReceiptStatusSuccessful,
	}
}

func (f *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.callsSeen = append(f.callsSeen, call)
	out, ok := f.calls[string(call.Data[:4])]
	if !ok {
		return nil, errors.New("execution reverted")
	}
	return out, nil
}

func (f *fakeBackend) ChainID(context.Context) (*big.Int, error) { return f.chainID, nil }

func (f *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return 3, nil
}

func (f *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return 100_000, nil
}

func (f *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pending > 0 {
		f.pending--
		return nil, ethereum.NotFound
	}
	return &types.Receipt{Status: f.status, TxHash: hash, Logs: f.logs}, nil
}

func newTestLedger(t *testing.T, backend *fakeBackend) (*Ledger, common.Address) {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	l := NewLedger(backend, key, LedgerConfig{
		Token:          testToken,
		Manager:        testManager,
		ReceiptPoll:    time.Millisecond,
		ReceiptTimeout: time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return l, ethcrypto.PubkeyToAddress(key.PublicKey)
}

func TestLedgerCreateMatch(t *testing.T) {
	backend := newFakeBackend()
	backend.pending = 2
	l, from := newTestLedger(t, backend)
	lg := createdLog(t, 42, from, big.NewInt(10), 1001)
	backend.logs = []*types.Log{&lg}

	id, hash, err := l.CreateMatch(context.Background(), big.NewInt(10), 1001, domain.PredictionAway)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id.Int64() != 42 {
		t.Errorf("match id = %s, want 42", id)
	}
	if len(backend.sent) != 1 {
		t.Fatalf("expected one transaction, got %d", len(backend.sent))
	}

	tx := backend.sent[0]
	if hash != tx.Hash() {
		t.Errorf("returned hash %s, sent %s", hash.Hex(), tx.Hash().Hex())
	}
	sender, err := types.Sender(types.NewEIP155Signer(backend.chainID), tx)
	if err != nil {
		t.Fatalf("recover sender: %v", err)
	}
	if sender != from {
		t.Errorf("tx signed by %s, want %s", sender.Hex(), from.Hex())
	}
	if tx.Nonce() != 3 || tx.Gas() != 120_000 || *tx.To() != testManager {
		t.Errorf("unexpected tx fields nonce=%d gas=%d to=%s", tx.Nonce(), tx.Gas(), tx.To().Hex())
	}

	want, _ := PackCreateMatch(big.NewInt(10), big.NewInt(1001), 2)
	if !bytes.Equal(tx.Data(), want) {
		t.Error("calldata does not encode createMatch(10, 1001, away)")
	}
}

func TestLedgerRevert(t *testing.T) {
	backend := newFakeBackend()
	backend.status = types.ReceiptStatusFailed
	l, _ := newTestLedger(t, backend)

	_, err := l.JoinMatch(context.Background(), big.NewInt(1), domain.PredictionHome)
	if !errors.Is(err, domain.ErrTxReverted) {
		t.Fatalf("expected ErrTxReverted, got %v", err)
	}
}

func TestLedgerReadOnlyCannotTransact(t *testing.T) {
	l := NewLedger(newFakeBackend(), nil, LedgerConfig{Manager: testManager}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if _, err := l.Approve(context.Background(), big.NewInt(1)); !errors.Is(err, domain.ErrSigningFailed) {
		t.Errorf("expected ErrSigningFailed, got %v", err)
	}
}

func TestLedgerReads(t *testing.T) {
	backend := newFakeBackend()
	l, from := newTestLedger(t, backend)

	balance, err := tokenABI.Methods["balanceOf"].Outputs.Pack(big.NewInt(777))
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	backend.calls[string(tokenABI.Methods["balanceOf"].ID)] = balance
	backend.calls[string(managerABI.Methods["getMatch"].ID)] = packGetMatch(t, LedgerMatch{
		Creator:   alice,
		Stake:     big.NewInt(5),
		FixtureID: big.NewInt(9),
	})

	got, err := l.BalanceOf(context.Background(), from)
	if err != nil || got.Int64() != 777 {
		t.Fatalf("BalanceOf = %v, %v", got, err)
	}
	if to := backend.callsSeen[0].To; to == nil || *to != testToken {
		t.Errorf("balanceOf sent to %v, want token", to)
	}

	m, err := l.Match(context.Background(), big.NewInt(12))
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if m.ID != "12" || m.Status != domain.MatchStatusOpen || m.FixtureID != 9 {
		t.Errorf("unexpected match %+v", m)
	}

	if _, err := l.GetUserMatches(context.Background(), from); err == nil {
		t.Error("expected the unconfigured call to surface the revert")
	}
}
