package crypto

import (
	"crypto/sha256"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil/base58"
	"golang.org/x/crypto/ripemd160"
)

// Script opcodes this package needs to recognize standard output scripts.
const (
	opDup         = 0x76
	opHash160     = 0xa9
	opEqualVerify = 0x88
	opCheckSig    = 0xac
	opData20      = 0x14
	opData33      = 0x21
	opData65      = 0x41
)

// Hash160 calculates ripemd160(sha256(b)).
func Hash160(b []byte) []byte {
	sha := sha256.Sum256(b)
	h := ripemd160.New()
	h.Write(sha[:])
	return h.Sum(nil)
}

// PubKeyToAddress converts a serialized secp256k1 public key (compressed or
// uncompressed) to a base58check pay-to-pubkey-hash address with the given
// version byte.  The key is parsed first so malformed script data never
// yields a plausible-looking address.
func PubKeyToAddress(pubKey []byte, addrID byte) (string, error) {
	if _, err := btcec.ParsePubKey(pubKey); err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return base58.CheckEncode(Hash160(pubKey), addrID), nil
}

// ExtractScriptAddress returns the base58check address of a standard output
// script.  Pay-to-pubkey and pay-to-pubkey-hash scripts are recognized; any
// other script shape reports ok=false.
func ExtractScriptAddress(pkScript []byte, addrID byte) (string, bool) {
	// Pay-to-pubkey: <data push 33|65> <pubkey> OP_CHECKSIG
	if len(pkScript) == 67 && pkScript[0] == opData65 && pkScript[66] == opCheckSig {
		addr, err := PubKeyToAddress(pkScript[1:66], addrID)
		if err != nil {
			return "", false
		}
		return addr, true
	}
	if len(pkScript) == 35 && pkScript[0] == opData33 && pkScript[34] == opCheckSig {
		addr, err := PubKeyToAddress(pkScript[1:34], addrID)
		if err != nil {
			return "", false
		}
		return addr, true
	}

	// Pay-to-pubkey-hash: OP_DUP OP_HASH160 <20 bytes> OP_EQUALVERIFY OP_CHECKSIG
	if len(pkScript) == 25 &&
		pkScript[0] == opDup && pkScript[1] == opHash160 && pkScript[2] == opData20 &&
		pkScript[23] == opEqualVerify && pkScript[24] == opCheckSig {
		return base58.CheckEncode(pkScript[3:23], addrID), true
	}

	return "", false
}
