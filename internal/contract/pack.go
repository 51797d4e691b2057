package contract

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// --------------------------------------------------------------------------
// Match manager calls
// --------------------------------------------------------------------------

// PackCreateMatch encodes createMatch(stake, fixtureId, prediction).
func PackCreateMatch(stake, fixtureID *big.Int, prediction uint8) ([]byte, error) {
	return pack(managerABI.Pack("createMatch", stake, fixtureID, prediction))
}

// PackJoinMatch encodes joinMatch(matchId, prediction).
func PackJoinMatch(matchID *big.Int, prediction uint8) ([]byte, error) {
	return pack(managerABI.Pack("joinMatch", matchID, prediction))
}

// PackGetMatch encodes getMatch(matchId).
func PackGetMatch(matchID *big.Int) ([]byte, error) {
	return pack(managerABI.Pack("getMatch", matchID))
}

// UnpackGetMatch decodes the return data of getMatch.
func UnpackGetMatch(data []byte) (LedgerMatch, error) {
	out, err := managerABI.Unpack("getMatch", data)
	if err != nil {
		return LedgerMatch{}, fmt.Errorf("contract: unpack getMatch: %w", err)
	}
	if len(out) != 8 {
		return LedgerMatch{}, fmt.Errorf("contract: unpack getMatch: %d outputs", len(out))
	}

	var m LedgerMatch
	var ok [8]bool
	m.Creator, ok[0] = out[0].(common.Address)
	m.Joiner, ok[1] = out[1].(common.Address)
	m.Stake, ok[2] = out[2].(*big.Int)
	m.FixtureID, ok[3] = out[3].(*big.Int)
	m.CreatorPrediction, ok[4] = out[4].(uint8)
	m.JoinerPrediction, ok[5] = out[5].(uint8)
	m.Settled, ok[6] = out[6].(bool)
	m.Winner, ok[7] = out[7].(common.Address)
	for i, good := range ok {
		if !good {
			return LedgerMatch{}, fmt.Errorf("contract: unpack getMatch: output %d has type %T", i, out[i])
		}
	}
	return m, nil
}

// PackGetUserMatches encodes getUserMatches(user).
func PackGetUserMatches(user common.Address) ([]byte, error) {
	return pack(managerABI.Pack("getUserMatches", user))
}

// UnpackUserMatches decodes the return data of getUserMatches.
func UnpackUserMatches(data []byte) ([]*big.Int, error) {
	out, err := managerABI.Unpack("getUserMatches", data)
	if err != nil {
		return nil, fmt.Errorf("contract: unpack getUserMatches: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("contract: unpack getUserMatches: %d outputs", len(out))
	}
	ids, ok := out[0].([]*big.Int)
	if !ok {
		return nil, fmt.Errorf("contract: unpack getUserMatches: unexpected type %T", out[0])
	}
	return ids, nil
}

// --------------------------------------------------------------------------
// Token calls
// --------------------------------------------------------------------------

// PackBalanceOf encodes balanceOf(account).
func PackBalanceOf(account common.Address) ([]byte, error) {
	return pack(tokenABI.Pack("balanceOf", account))
}

// PackAllowance encodes allowance(owner, spender).
func PackAllowance(owner, spender common.Address) ([]byte, error) {
	return pack(tokenABI.Pack("allowance", owner, spender))
}

// PackApprove encodes approve(spender, amount).
func PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return pack(tokenABI.Pack("approve", spender, amount))
}

// PackTransfer encodes transfer(to, amount).
func PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return pack(tokenABI.Pack("transfer", to, amount))
}

// UnpackUint256 decodes a single uint256 return value of a token method.
func UnpackUint256(method string, data []byte) (*big.Int, error) {
	out, err := tokenABI.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("contract: unpack %s: %w", method, err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("contract: unpack %s: %d outputs", method, len(out))
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("contract: unpack %s: unexpected type %T", method, out[0])
	}
	return v, nil
}

func pack(data []byte, err error) ([]byte, error) {
	if err != nil {
		return nil, fmt.Errorf("contract: pack: %w", err)
	}
	return data, nil
}
