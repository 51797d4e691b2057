package crypto

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestEncryptedKeyFileRoundTrip(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	keyHex := "0x" + hex.EncodeToString(ethcrypto.FromECDSA(key))
	addr := ethcrypto.PubkeyToAddress(key.PublicKey)

	blob, err := EncryptKey(keyHex, "hunter2")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	path := filepath.Join(t.TempDir(), "wallet.json")
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	w, err := LoadWallet(KeyConfig{EncryptedKeyPath: path, KeyPassword: "hunter2"}, addr.Hex())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if w.Address != addr {
		t.Errorf("address = %s, want %s", w.Address.Hex(), addr.Hex())
	}

	if _, err := LoadWallet(KeyConfig{EncryptedKeyPath: path, KeyPassword: "wrong"}, ""); err == nil {
		t.Error("expected wrong password to fail")
	}
}

func TestLoadWalletRawKey(t *testing.T) {
	key, _ := ethcrypto.GenerateKey()
	raw := hex.EncodeToString(ethcrypto.FromECDSA(key))

	w, err := LoadWallet(KeyConfig{RawPrivateKey: raw}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Address != ethcrypto.PubkeyToAddress(key.PublicKey) {
		t.Error("derived address mismatch")
	}

	if _, err := LoadWallet(KeyConfig{RawPrivateKey: raw}, "0x0000000000000000000000000000000000000001"); err == nil {
		t.Error("expected an address mismatch error")
	}
	if _, err := LoadWallet(KeyConfig{}, ""); err == nil {
		t.Error("expected an error with no key source")
	}
	if _, err := LoadWallet(KeyConfig{RawPrivateKey: "zz"}, ""); err == nil {
		t.Error("expected an error for invalid hex")
	}
}
