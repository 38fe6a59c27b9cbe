package blockchain

import (
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/sirupsen/logrus"

	"github.com/Bitcoin-Clashic/clashicd/chaincfg"
	"github.com/Bitcoin-Clashic/clashicd/database"
	"github.com/Bitcoin-Clashic/clashicd/wire"
)

// ErrGenesisCoinbaseUnavailable is returned by RawTransaction when the
// genesis coinbase is requested on a node that did not connect it to the
// UTXO set.  The message is fixed: it is surfaced verbatim to RPC callers
// and must match across independently configured nodes.
var ErrGenesisCoinbaseUnavailable = errors.New(
	"The genesis block coinbase is not considered an ordinary transaction " +
		"and cannot be retrieved")

// BlockChain is the chainstate of the node: the chain metadata index plus
// the UTXO set, bound together by the genesis connection decision made once
// at startup.
type BlockChain struct {
	params  *chaincfg.Params
	db      *database.Storage
	utxoSet *UTXOSet

	// genesisCoinbaseTxID is the transaction id of the genesis coinbase,
	// precomputed since the retrieval policy checks it on every lookup.
	genesisCoinbaseTxID chainhash.Hash

	// genesisConnected records whether the genesis coinbase output is
	// part of the UTXO set.  It is resolved exactly once, before any RPC
	// traffic is served, and never changes for the process lifetime.
	genesisConnected bool

	mu       sync.RWMutex
	bestHash chainhash.Hash
	height   int32
}

// New returns a BlockChain backed by the given storage.  On first startup
// (no block at height 0) it runs the genesis initializer: the genesis block
// is always recorded in the metadata index, and its coinbase output enters
// the UTXO set only when connectGenesisCoinbase is true.  On subsequent
// startups initialization is a no-op and the connection state is derived
// from the store itself, so the retrieval policy always agrees with the
// persisted UTXO set.
func New(params *chaincfg.Params, db *database.Storage, connectGenesisCoinbase bool) (*BlockChain, error) {
	bc := &BlockChain{
		params:              params,
		db:                  db,
		utxoSet:             NewUTXOSet(db.DB()),
		genesisCoinbaseTxID: params.GenesisCoinbaseTx().TxHash(),
	}

	storedHash, err := db.BlockHashByHeight(0)
	switch {
	case errors.Is(err, database.ErrNotFound):
		if err := bc.initializeGenesis(connectGenesisCoinbase); err != nil {
			return nil, err
		}
		bc.genesisConnected = connectGenesisCoinbase

	case err != nil:
		return nil, fmt.Errorf("failed to read genesis slot: %w", err)

	default:
		if *storedHash != *params.GenesisHash {
			return nil, fmt.Errorf("stored genesis %s does not match network genesis %s: %w",
				storedHash, params.GenesisHash, database.ErrHeightConflict)
		}

		connected, err := bc.utxoSet.HaveUTXO(bc.genesisOutPoint())
		if err != nil {
			return nil, fmt.Errorf("failed to read genesis outpoint: %w", err)
		}
		bc.genesisConnected = connected

		if connected != connectGenesisCoinbase {
			logrus.WithFields(logrus.Fields{
				"configured": connectGenesisCoinbase,
				"stored":     connected,
			}).Warn("connect_genesis_coinbase differs from initialized chainstate, keeping stored state")
		}
	}

	tip, err := db.TipHeight()
	if err != nil {
		return nil, fmt.Errorf("failed to read chain tip: %w", err)
	}
	tipHash, err := db.BlockHashByHeight(tip)
	if err != nil {
		return nil, fmt.Errorf("failed to read tip hash: %w", err)
	}
	bc.height = tip
	bc.bestHash = *tipHash

	return bc, nil
}

// initializeGenesis runs exactly once, against empty storage, before the
// node serves any request traffic.
func (b *BlockChain) initializeGenesis(connectCoinbase bool) error {
	genesis := b.params.GenesisBlock

	if err := b.db.PutBlock(0, genesis); err != nil {
		return fmt.Errorf("failed to store genesis block: %w", err)
	}

	if connectCoinbase {
		coinbase := genesis.Transactions[0]
		if err := b.utxoSet.AddUTXO(b.genesisOutPoint(), coinbase.TxOut[0], 0, true); err != nil {
			return fmt.Errorf("failed to connect genesis coinbase: %w", err)
		}
	}

	logrus.WithFields(logrus.Fields{
		"hash":             genesis.BlockHash(),
		"connect_coinbase": connectCoinbase,
	}).Info("Initialized chainstate with genesis block")
	return nil
}

func (b *BlockChain) genesisOutPoint() wire.OutPoint {
	return wire.OutPoint{Hash: b.genesisCoinbaseTxID, Index: 0}
}

// Params returns the chain parameters.
func (b *BlockChain) Params() *chaincfg.Params {
	return b.params
}

// Height returns the height of the best block.
func (b *BlockChain) Height() int32 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.height
}

// BestHash returns the hash of the block at the tip of the chain.
func (b *BlockChain) BestHash() chainhash.Hash {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.bestHash
}

// BestBlock returns the block at the tip of the chain.
func (b *BlockChain) BestBlock() (*wire.MsgBlock, error) {
	hash := b.BestHash()
	return b.db.GetBlock(&hash)
}

// GenesisConnected reports whether the genesis coinbase output is part of
// the UTXO set on this node.
func (b *BlockChain) GenesisConnected() bool {
	return b.genesisConnected
}

// GenesisCoinbaseTxID returns the transaction id of the genesis coinbase.
func (b *BlockChain) GenesisCoinbaseTxID() chainhash.Hash {
	return b.genesisCoinbaseTxID
}

// GetBlock retrieves a block by its hash.
func (b *BlockChain) GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	return b.db.GetBlock(hash)
}

// BlockHashByHeight returns the hash of the block at the given height.
func (b *BlockChain) BlockHashByHeight(height int32) (*chainhash.Hash, error) {
	return b.db.BlockHashByHeight(height)
}

// BlockHeightByHash returns the height of the block with the given hash.
func (b *BlockChain) BlockHeightByHash(hash *chainhash.Hash) (int32, error) {
	return b.db.BlockHeightByHash(hash)
}

// UTXOSet returns the UTXO set.
func (b *BlockChain) UTXOSet() *UTXOSet {
	return b.utxoSet
}

// GetTransaction looks a transaction up by id in the metadata index and
// returns it along with the hash of the containing block.  The genesis
// coinbase retrieval policy of RawTransaction does not apply here.
func (b *BlockChain) GetTransaction(txid *chainhash.Hash) (*wire.MsgTx, *chainhash.Hash, error) {
	blockHash, err := b.db.TxBlockHash(txid)
	if err != nil {
		return nil, nil, err
	}

	block, err := b.db.GetBlock(blockHash)
	if err != nil {
		return nil, nil, err
	}

	for _, tx := range block.Transactions {
		if tx.TxHash() == *txid {
			return tx, blockHash, nil
		}
	}

	// The index pointed at a block that no longer carries the tx, which
	// means the index itself is corrupt.
	return nil, nil, fmt.Errorf("transaction %s missing from indexed block %s", txid, blockHash)
}

// RawTransaction returns the serialized transaction with the given id.
//
// Retrievability of the genesis coinbase is gated by UTXO-connectedness,
// not by mere existence in the metadata index: on a node that did not
// connect the genesis coinbase, the lookup fails with
// ErrGenesisCoinbaseUnavailable even though the transaction bytes are
// stored.  Unknown ids fail with database.ErrNotFound.
func (b *BlockChain) RawTransaction(txid *chainhash.Hash) ([]byte, error) {
	if *txid == b.genesisCoinbaseTxID && !b.genesisConnected {
		return nil, ErrGenesisCoinbaseUnavailable
	}

	tx, _, err := b.GetTransaction(txid)
	if err != nil {
		return nil, err
	}
	return tx.Bytes()
}

// ConnectBlock appends a block to the tip of the chain: the block is
// recorded in the metadata index and its transactions are applied to the
// UTXO set.  Only minimal linkage checks are performed here; full consensus
// validation is the caller's concern.
func (b *BlockChain) ConnectBlock(block *wire.MsgBlock) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if block.Header.PrevBlock != b.bestHash {
		return fmt.Errorf("block %s does not extend the best chain tip %s",
			block.BlockHash(), b.bestHash)
	}

	newHeight := b.height + 1
	if err := b.db.PutBlock(newHeight, block); err != nil {
		return fmt.Errorf("failed to store block at height %d: %w", newHeight, err)
	}
	if err := b.utxoSet.ApplyBlock(block, newHeight); err != nil {
		return fmt.Errorf("failed to apply block %s to utxo set: %w", block.BlockHash(), err)
	}

	b.bestHash = block.BlockHash()
	b.height = newHeight

	logrus.WithFields(logrus.Fields{
		"height": newHeight,
		"hash":   b.bestHash,
	}).Debug("Connected block")
	return nil
}
