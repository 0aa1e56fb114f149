// Package cryptox groups the key-derivation and hashing primitives used for
// account passwords and the device PIN.
package cryptox

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"strconv"
	"unicode/utf16"

	"github.com/dmitrijs2005/migrainelog/internal/common"
	"golang.org/x/crypto/argon2"
)

const (
	AlgoArgon2ID = "argon2id"
	AlgoChecksum = "checksum32"

	pinSaltSize = 16
)

var ErrUnknownAlgorithm = errors.New("unknown credential algorithm")

// MakeVerifier turns a derived master key into the value stored by the server.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// PINHash is the stored form of the device PIN.
type PINHash struct {
	Algo string `json:"algo"`
	Salt []byte `json:"salt,omitempty"`
	Hash string `json:"hash"`
}

// HashPIN derives an argon2id hash of pin with a fresh random salt.
func HashPIN(pin string) PINHash {
	salt := common.GenerateRandByteArray(pinSaltSize)
	key := DeriveMasterKey([]byte(pin), salt)
	return PINHash{Algo: AlgoArgon2ID, Salt: salt, Hash: hex.EncodeToString(key)}
}

// VerifyPIN compares pin against h in constant time.
func VerifyPIN(h PINHash, pin string) (bool, error) {
	var candidate []byte
	switch h.Algo {
	case AlgoArgon2ID:
		candidate = []byte(hex.EncodeToString(DeriveMasterKey([]byte(pin), h.Salt)))
	case AlgoChecksum, "":
		candidate = []byte(LegacyChecksum(pin))
	default:
		return false, ErrUnknownAlgorithm
	}
	return subtle.ConstantTimeCompare(candidate, []byte(h.Hash)) == 1, nil
}

// LegacyChecksum is the 32-bit rolling hash (h*31 + c over UTF-16 code units)
// written by older journal versions. Only used to read imported credentials.
func LegacyChecksum(pin string) string {
	var h int32
	for _, c := range utf16.Encode([]rune(pin)) {
		h = (h << 5) - h + int32(c)
	}
	return strconv.FormatInt(int64(h), 10)
}
