package crypto

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	ErrDeclined     = errors.New("user rejected signing")
	ErrInvalidKey   = errors.New("invalid private key")
	ErrKeyFileExist = errors.New("key file already exists")
)

// Signer signs 32-byte digests on behalf of a member.
type Signer interface {
	Address() common.Address
	SignHash(hash []byte) ([]byte, error)
}

var _ Signer = &KeySigner{}
var _ Signer = &ConfirmSigner{}

// KeySigner holds a secp256k1 member key loaded from a hex key file.
type KeySigner struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

func NewKeySigner(key *ecdsa.PrivateKey) *KeySigner {
	return &KeySigner{
		privateKey: key,
		address:    ethcrypto.PubkeyToAddress(key.PublicKey),
	}
}

func LoadKeySigner(keyFilePath string) (*KeySigner, error) {
	dat, err := os.ReadFile(keyFilePath)
	if err != nil {
		return nil, err
	}
	key, err := ethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(string(dat)), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w in %v: %v", ErrInvalidKey, keyFilePath, err)
	}
	return NewKeySigner(key), nil
}

// GenerateKeyFile creates a fresh member key and writes it hex encoded to keyFilePath.
func GenerateKeyFile(keyFilePath string, overwrite bool) (*KeySigner, error) {
	if _, err := os.Stat(keyFilePath); err == nil && !overwrite {
		return nil, ErrKeyFileExist
	}
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(keyFilePath), 0o700); err != nil {
		return nil, err
	}
	key := hex.EncodeToString(ethcrypto.FromECDSA(priv))
	if err := os.WriteFile(keyFilePath, []byte(key), 0o600); err != nil {
		return nil, err
	}
	return NewKeySigner(priv), nil
}

func (k *KeySigner) Address() common.Address {
	return k.address
}

func (k *KeySigner) PublicKey() []byte {
	return ethcrypto.FromECDSAPub(&k.privateKey.PublicKey)
}

func (k *KeySigner) SignHash(hash []byte) ([]byte, error) {
	return ethcrypto.Sign(hash, k.privateKey)
}

// RecoverAddress returns the address whose key produced sig over hash.
func RecoverAddress(hash, sig []byte) (common.Address, error) {
	pub, err := ethcrypto.SigToPub(hash, sig)
	if err != nil {
		return common.Address{}, err
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}
