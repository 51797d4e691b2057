package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/alanyoungcy/matchstake/internal/config"
	"github.com/alanyoungcy/matchstake/internal/contract"
	"github.com/alanyoungcy/matchstake/internal/crypto"
	"github.com/alanyoungcy/matchstake/internal/domain"
	"github.com/alanyoungcy/matchstake/internal/explorer"
)

// runCommand executes a one-shot subcommand.
func runCommand(ctx context.Context, cfg *config.Config, args []string, logger *slog.Logger) error {
	name, rest := args[0], args[1:]
	if name == "encrypt-key" {
		return encryptKey(cfg, rest)
	}

	readOnly := name == "balance" || name == "match"
	ledger, closeFn, err := dialLedger(ctx, cfg, readOnly, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	links := explorer.NewBuilder(cfg.Networks, cfg.Chain.Network)

	switch name {
	case "balance":
		return balance(ctx, cfg, ledger, rest)
	case "approve":
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		amount := fs.String("amount", "", "tokens to approve")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		wei, err := contract.ParseAmount(*amount, ledger.Decimals())
		if err != nil {
			return err
		}
		tx, err := ledger.Approve(ctx, wei)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"tx_hash": tx.Hex(), "tx_url": links.TxDefault(tx.Hex())})
	case "create-match":
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		fixture := fs.Int64("fixture", 0, "fixture id")
		stake := fs.String("stake", "", "stake in tokens")
		prediction := fs.String("prediction", "", "home, draw or away")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		if *fixture <= 0 {
			return fmt.Errorf("-fixture is required: %w", domain.ErrInvalidInput)
		}
		p, err := domain.ParsePrediction(*prediction)
		if err != nil {
			return err
		}
		wei, err := contract.ParseAmount(*stake, ledger.Decimals())
		if err != nil {
			return err
		}
		id, tx, err := ledger.CreateMatch(ctx, wei, *fixture, p)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"match_id": id.String(), "tx_hash": tx.Hex(), "tx_url": links.TxDefault(tx.Hex())})
	case "join-match":
		fs := flag.NewFlagSet(name, flag.ContinueOnError)
		matchID := fs.String("match", "", "match id")
		prediction := fs.String("prediction", "", "home, draw or away")
		if err := fs.Parse(rest); err != nil {
			return err
		}
		id, ok := new(big.Int).SetString(*matchID, 10)
		if !ok {
			return fmt.Errorf("-match %q: %w", *matchID, domain.ErrInvalidInput)
		}
		p, err := domain.ParsePrediction(*prediction)
		if err != nil {
			return err
		}
		tx, err := ledger.JoinMatch(ctx, id, p)
		if err != nil {
			return err
		}
		return printJSON(map[string]string{"tx_hash": tx.Hex(), "tx_url": links.TxDefault(tx.Hex())})
	case "match":
		if len(rest) != 1 {
			return fmt.Errorf("usage: match ID: %w", domain.ErrInvalidInput)
		}
		id, ok := new(big.Int).SetString(rest[0], 10)
		if !ok {
			return fmt.Errorf("match id %q: %w", rest[0], domain.ErrInvalidInput)
		}
		m, err := ledger.Match(ctx, id)
		if err != nil {
			return err
		}
		return printJSON(m)
	default:
		return fmt.Errorf("unknown command %q", name)
	}
}

func dialLedger(ctx context.Context, cfg *config.Config, readOnly bool, logger *slog.Logger) (*contract.Ledger, func(), error) {
	if !common.IsHexAddress(cfg.Contracts.MatchManager) {
		return nil, nil, errors.New("contracts.match_manager is not configured")
	}
	codec, err := contract.NewPredictionCodec(
		uint8(cfg.Contracts.PredictionEncoding.Home),
		uint8(cfg.Contracts.PredictionEncoding.Draw),
		uint8(cfg.Contracts.PredictionEncoding.Away),
	)
	if err != nil {
		return nil, nil, err
	}

	var wallet crypto.Wallet
	if !readOnly {
		wallet, err = crypto.LoadWallet(crypto.KeyConfig{
			RawPrivateKey:    cfg.Wallet.PrivateKey,
			EncryptedKeyPath: cfg.Wallet.EncryptedKeyPath,
			KeyPassword:      cfg.Wallet.KeyPassword,
		}, cfg.Wallet.Address)
		if err != nil {
			return nil, nil, err
		}
	}

	client, err := ethclient.DialContext(ctx, cfg.Chain.RPCURL)
	if err != nil {
		return nil, nil, fmt.Errorf("dial %s: %w", cfg.Chain.Network, err)
	}
	ledger := contract.NewLedger(client, wallet.Key, contract.LedgerConfig{
		Token:    common.HexToAddress(cfg.Contracts.Token),
		Manager:  common.HexToAddress(cfg.Contracts.MatchManager),
		Decimals: cfg.Contracts.TokenDecimals,
		Codec:    codec,
		GasLimit: cfg.Contracts.GasLimit,
	}, logger)
	return ledger, client.Close, nil
}

func balance(ctx context.Context, cfg *config.Config, ledger *contract.Ledger, args []string) error {
	var owner common.Address
	switch {
	case len(args) > 0 && common.IsHexAddress(args[0]):
		owner = common.HexToAddress(args[0])
	case common.IsHexAddress(cfg.Wallet.Address):
		owner = common.HexToAddress(cfg.Wallet.Address)
	default:
		return fmt.Errorf("pass an address or set wallet.address: %w", domain.ErrInvalidInput)
	}

	bal, err := ledger.BalanceOf(ctx, owner)
	if err != nil {
		return err
	}
	allowance, err := ledger.Allowance(ctx, owner)
	if err != nil {
		return err
	}
	return printJSON(map[string]string{
		"address":   owner.Hex(),
		"balance":   contract.FormatAmount(bal, ledger.Decimals()),
		"allowance": contract.FormatAmount(allowance, ledger.Decimals()),
	})
}

func encryptKey(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("encrypt-key", flag.ContinueOnError)
	out := fs.String("out", "wallet.key.json", "output file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if cfg.Wallet.PrivateKey == "" || cfg.Wallet.KeyPassword == "" {
		return errors.New("wallet.private_key and wallet.key_password must be set")
	}
	data, err := crypto.EncryptKey(cfg.Wallet.PrivateKey, cfg.Wallet.KeyPassword)
	if err != nil {
		return err
	}
	if err := os.WriteFile(*out, data, 0o600); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "wrote %s; remove wallet.private_key from the config\n", *out)
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
