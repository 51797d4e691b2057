// Package contract declares the token and match manager contract interfaces
// and provides encoding, event decoding and a ledger client for them.
package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// TokenABI is the ERC-20 subset used to stake.
const TokenABI = `[
	{"name":"balanceOf","type":"function","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"approve","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"name":"allowance","type":"function","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"transfer","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]}
]`

// MatchManagerABI is the match manager contract interface.
const MatchManagerABI = `[
	{"name":"MatchCreated","type":"event","anonymous":false,"inputs":[
		{"name":"matchId","type":"uint256","indexed":true},
		{"name":"creator","type":"address","indexed":true},
		{"name":"stake","type":"uint256","indexed":false},
		{"name":"fixtureId","type":"uint256","indexed":false}]},
	{"name":"MatchJoined","type":"event","anonymous":false,"inputs":[
		{"name":"matchId","type":"uint256","indexed":true},
		{"name":"joiner","type":"address","indexed":true}]},
	{"name":"MatchSettled","type":"event","anonymous":false,"inputs":[
		{"name":"matchId","type":"uint256","indexed":true},
		{"name":"winner","type":"address","indexed":true},
		{"name":"reward","type":"uint256","indexed":false}]},
	{"name":"createMatch","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"stake","type":"uint256"},{"name":"fixtureId","type":"uint256"},{"name":"prediction","type":"uint8"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"name":"joinMatch","type":"function","stateMutability":"nonpayable",
	 "inputs":[{"name":"matchId","type":"uint256"},{"name":"prediction","type":"uint8"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"name":"getMatch","type":"function","stateMutability":"view",
	 "inputs":[{"name":"matchId","type":"uint256"}],
	 "outputs":[
		{"name":"creator","type":"address"},
		{"name":"joiner","type":"address"},
		{"name":"stake","type":"uint256"},
		{"name":"fixtureId","type":"uint256"},
		{"name":"creatorPrediction","type":"uint8"},
		{"name":"joinerPrediction","type":"uint8"},
		{"name":"settled","type":"bool"},
		{"name":"winner","type":"address"}]},
	{"name":"getUserMatches","type":"function","stateMutability":"view",
	 "inputs":[{"name":"user","type":"address"}],
	 "outputs":[{"name":"","type":"uint256[]"}]}
]`

var (
	tokenABI   = mustParse("token", TokenABI)
	managerABI = mustParse("match manager", MatchManagerABI)
)

func mustParse(name, def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("contract: parse %s abi: %v", name, err))
	}
	return parsed
}

// TokenContractABI returns the parsed token ABI.
func TokenContractABI() abi.ABI { return tokenABI }

// MatchManagerContractABI returns the parsed match manager ABI.
func MatchManagerContractABI() abi.ABI { return managerABI }
