package chaincfg

import (
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Bitcoin-Clashic/clashicd/wire"
)

// SatoshiPerCoin is the number of base currency units in one whole coin.
const SatoshiPerCoin = 100000000

// Params defines a network configuration.
type Params struct {
	Name        string
	Net         uint32
	DefaultPort string

	// GenesisBlock is the canonical first block of the chain.  It is a
	// pure function of these parameters and identical across all nodes of
	// the same network, regardless of their local configuration.
	GenesisBlock *wire.MsgBlock

	// GenesisHash is the hash of GenesisBlock.
	GenesisHash *chainhash.Hash

	// GenesisReward is the value of the genesis coinbase output in
	// satoshis.  Treated as a parameter rather than a hard invariant so a
	// chain with a different launch subsidy only changes its params.
	GenesisReward int64

	// Block reward parameters
	BaseSubsidy            int64 // Initial block reward in satoshis
	SubsidyHalvingInterval int32 // Blocks between halvings

	// Difficulty parameters
	PowLimitBits       uint32
	TargetTimePerBlock time.Duration

	// MaxMoney is the maximum number of satoshis that can ever exist.
	MaxMoney int64

	// PubKeyHashAddrID is the version byte for pay-to-pubkey-hash
	// base58 addresses.
	PubKeyHashAddrID byte
}

// GenesisCoinbaseTx returns the coinbase transaction of the genesis block.
func (p *Params) GenesisCoinbaseTx() *wire.MsgTx {
	return p.GenesisBlock.Transactions[0]
}

// MainNetParams defines the network parameters for the main network.
var MainNetParams = Params{
	Name:        "mainnet",
	Net:         0xd9b4bef9,
	DefaultPort: "8333",

	GenesisBlock: &genesisBlock,
	GenesisHash:  &genesisHash,

	GenesisReward: 50 * SatoshiPerCoin,

	BaseSubsidy:            50 * SatoshiPerCoin,
	SubsidyHalvingInterval: 210000,

	PowLimitBits:       0x1d00ffff,
	TargetTimePerBlock: time.Minute * 10,

	MaxMoney: 21000000 * SatoshiPerCoin,

	PubKeyHashAddrID: 0x00,
}
