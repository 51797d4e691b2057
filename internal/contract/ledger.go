package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/alanyoungcy/matchstake/internal/domain"
)

// Backend is the subset of *ethclient.Client the ledger needs.
type Backend interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	ChainID(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// LedgerConfig configures a Ledger.
type LedgerConfig struct {
	Token    common.Address
	Manager  common.Address
	Decimals int32
	Codec    PredictionCodec

	// GasLimit fixes the gas of every transaction. Zero estimates it.
	GasLimit       uint64
	ReceiptPoll    time.Duration
	ReceiptTimeout time.Duration
}

// Ledger reads match manager state and submits signed transactions.
type Ledger struct {
	backend Backend
	key     *ecdsa.PrivateKey
	from    common.Address
	cfg     LedgerConfig
	logger  *slog.Logger
}

// NewLedger creates a ledger client. key may be nil for a read-only client.
func NewLedger(backend Backend, key *ecdsa.PrivateKey, cfg LedgerConfig, logger *slog.Logger) *Ledger {
	if cfg.Decimals == 0 {
		cfg.Decimals = 18
	}
	if cfg.Codec.toWire == nil {
		cfg.Codec = DefaultPredictionCodec()
	}
	if cfg.ReceiptPoll <= 0 {
		cfg.ReceiptPoll = 2 * time.Second
	}
	if cfg.ReceiptTimeout <= 0 {
		cfg.ReceiptTimeout = 2 * time.Minute
	}
	l := &Ledger{
		backend: backend,
		key:     key,
		cfg:     cfg,
		logger:  logger.With(slog.String("component", "ledger")),
	}
	if key != nil {
		l.from = ethcrypto.PubkeyToAddress(key.PublicKey)
	}
	return l
}

// Address returns the wallet address transactions are sent from.
func (l *Ledger) Address() common.Address { return l.from }

// Decimals returns the stake token's decimals.
func (l *Ledger) Decimals() int32 { return l.cfg.Decimals }

// Codec returns the prediction codec in use.
func (l *Ledger) Codec() PredictionCodec { return l.cfg.Codec }

// --------------------------------------------------------------------------
// Reads
// --------------------------------------------------------------------------

// BalanceOf returns the token balance of account in base units.
func (l *Ledger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	data, err := PackBalanceOf(account)
	if err != nil {
		return nil, err
	}
	out, err := l.call(ctx, l.cfg.Token, data)
	if err != nil {
		return nil, fmt.Errorf("contract: balanceOf: %w", err)
	}
	return UnpackUint256("balanceOf", out)
}

// Allowance returns how much the match manager may spend on behalf of owner.
func (l *Ledger) Allowance(ctx context.Context, owner common.Address) (*big.Int, error) {
	data, err := PackAllowance(owner, l.cfg.Manager)
	if err != nil {
		return nil, err
	}
	out, err := l.call(ctx, l.cfg.Token, data)
	if err != nil {
		return nil, fmt.Errorf("contract: allowance: %w", err)
	}
	return UnpackUint256("allowance", out)
}

// GetMatch returns the raw ledger record of a match.
func (l *Ledger) GetMatch(ctx context.Context, matchID *big.Int) (LedgerMatch, error) {
	data, err := PackGetMatch(matchID)
	if err != nil {
		return LedgerMatch{}, err
	}
	out, err := l.call(ctx, l.cfg.Manager, data)
	if err != nil {
		return LedgerMatch{}, fmt.Errorf("contract: getMatch %s: %w", matchID, err)
	}
	return UnpackGetMatch(out)
}

// Match returns a match converted to its domain form.
func (l *Ledger) Match(ctx context.Context, matchID *big.Int) (domain.Match, error) {
	raw, err := l.GetMatch(ctx, matchID)
	if err != nil {
		return domain.Match{}, err
	}
	return raw.ToDomain(matchID, l.cfg.Decimals, l.cfg.Codec)
}

// GetUserMatches returns the ids of every match user created or joined.
func (l *Ledger) GetUserMatches(ctx context.Context, user common.Address) ([]*big.Int, error) {
	data, err := PackGetUserMatches(user)
	if err != nil {
		return nil, err
	}
	out, err := l.call(ctx, l.cfg.Manager, data)
	if err != nil {
		return nil, fmt.Errorf("contract: getUserMatches %s: %w", user.Hex(), err)
	}
	return UnpackUserMatches(out)
}

func (l *Ledger) call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return l.backend.CallContract(ctx, ethereum.CallMsg{From: l.from, To: &to, Data: data}, nil)
}

// --------------------------------------------------------------------------
// Transactions
// --------------------------------------------------------------------------

// Approve lets the match manager spend amount of the wallet's tokens.
func (l *Ledger) Approve(ctx context.Context, amount *big.Int) (common.Hash, error) {
	data, err := PackApprove(l.cfg.Manager, amount)
	if err != nil {
		return common.Hash{}, err
	}
	receipt, err := l.transact(ctx, l.cfg.Token, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("contract: approve: %w", err)
	}
	return receipt.TxHash, nil
}

// Transfer sends amount of tokens to another address.
func (l *Ledger) Transfer(ctx context.Context, to common.Address, amount *big.Int) (common.Hash, error) {
	data, err := PackTransfer(to, amount)
	if err != nil {
		return common.Hash{}, err
	}
	receipt, err := l.transact(ctx, l.cfg.Token, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("contract: transfer: %w", err)
	}
	return receipt.TxHash, nil
}

// CreateMatch stakes on a fixture and returns the new match id read from
// the MatchCreated event of the receipt.
func (l *Ledger) CreateMatch(ctx context.Context, stake *big.Int, fixtureID int64, p domain.Prediction) (*big.Int, common.Hash, error) {
	wire, err := l.cfg.Codec.Encode(p)
	if err != nil {
		return nil, common.Hash{}, err
	}
	data, err := PackCreateMatch(stake, big.NewInt(fixtureID), wire)
	if err != nil {
		return nil, common.Hash{}, err
	}
	receipt, err := l.transact(ctx, l.cfg.Manager, data)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("contract: createMatch fixture=%d: %w", fixtureID, err)
	}

	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != l.cfg.Manager {
			continue
		}
		ev, err := DecodeLog(*lg)
		if err != nil || ev.Kind != domain.MatchEventCreated {
			continue
		}
		return ev.MatchID, receipt.TxHash, nil
	}
	return nil, receipt.TxHash, fmt.Errorf("contract: createMatch tx %s: no MatchCreated event in receipt", receipt.TxHash.Hex())
}

// JoinMatch joins an open match with the given prediction.
func (l *Ledger) JoinMatch(ctx context.Context, matchID *big.Int, p domain.Prediction) (common.Hash, error) {
	wire, err := l.cfg.Codec.Encode(p)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := PackJoinMatch(matchID, wire)
	if err != nil {
		return common.Hash{}, err
	}
	receipt, err := l.transact(ctx, l.cfg.Manager, data)
	if err != nil {
		return common.Hash{}, fmt.Errorf("contract: joinMatch %s: %w", matchID, err)
	}
	return receipt.TxHash, nil
}

// transact signs and sends a legacy EIP-155 transaction and waits for its
// receipt. A failed receipt returns ErrTxReverted carrying the tx hash.
func (l *Ledger) transact(ctx context.Context, to common.Address, data []byte) (*types.Receipt, error) {
	if l.key == nil {
		return nil, fmt.Errorf("%w: no wallet key configured", domain.ErrSigningFailed)
	}

	chainID, err := l.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	gasPrice, err := l.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("gas price: %w", err)
	}
	nonce, err := l.backend.PendingNonceAt(ctx, l.from)
	if err != nil {
		return nil, fmt.Errorf("pending nonce: %w", err)
	}

	gas := l.cfg.GasLimit
	if gas == 0 {
		est, err := l.backend.EstimateGas(ctx, ethereum.CallMsg{From: l.from, To: &to, Data: data})
		if err != nil {
			return nil, fmt.Errorf("estimate gas: %w", err)
		}
		gas = est + est/5
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &to,
		Value:    big.NewInt(0),
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.NewEIP155Signer(chainID), l.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSigningFailed, err)
	}
	if err := l.backend.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	l.logger.InfoContext(ctx, "ledger: transaction sent",
		slog.String("tx_hash", signed.Hash().Hex()),
		slog.String("to", to.Hex()),
		slog.Uint64("nonce", nonce),
	)
	return l.waitReceipt(ctx, signed.Hash())
}

func (l *Ledger) waitReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	deadline := time.NewTimer(l.cfg.ReceiptTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(l.cfg.ReceiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := l.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("%w: tx %s", domain.ErrTxReverted, hash.Hex())
			}
			return receipt, nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			l.logger.WarnContext(ctx, "ledger: receipt lookup failed",
				slog.String("tx_hash", hash.Hex()),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait receipt %s: %w", hash.Hex(), ctx.Err())
		case <-deadline.C:
			return nil, fmt.Errorf("wait receipt %s: timed out after %s", hash.Hex(), l.cfg.ReceiptTimeout)
		case <-ticker.C:
		}
	}
}
