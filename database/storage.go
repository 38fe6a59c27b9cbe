package database

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"go.etcd.io/bbolt"

	"github.com/Bitcoin-Clashic/clashicd/wire"
)

const defaultDbFile = "clashic.db"

var (
	// blocksBucket maps block hash -> serialized block.
	blocksBucket = []byte("blocks")

	// heightsBucket maps big-endian block height -> block hash.
	heightsBucket = []byte("heights")

	// hashHeightsBucket maps block hash -> big-endian block height.
	hashHeightsBucket = []byte("hashheights")

	// txIndexBucket maps txid -> hash of the block containing it.
	txIndexBucket = []byte("txindex")
)

// Error kinds surfaced by the storage layer.  Callers match them with
// errors.Is.
var (
	// ErrNotFound is returned when a requested key is absent from an
	// index.
	ErrNotFound = errors.New("not found")

	// ErrHeightConflict is returned when a different block already
	// occupies the requested height.  It indicates inconsistent chain
	// data and is fatal during initialization.
	ErrHeightConflict = errors.New("height occupied by a different block")
)

// Storage is the chain metadata index.  It stores block bodies keyed by
// hash, a height-to-hash mapping, and a transaction location index, all in a
// single bolt database.  Block storage is independent of UTXO membership: a
// block recorded here may or may not have its outputs in the UTXO set.
type Storage struct {
	db *bbolt.DB
}

// NewStorage opens (creating if necessary) the chain database under dataDir.
func NewStorage(dataDir string) (*Storage, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := bbolt.Open(filepath.Join(dataDir, defaultDbFile), 0600, nil)
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{blocksBucket, heightsBucket, hashHeightsBucket, txIndexBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Storage{db: db}, nil
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

// DB returns the underlying bolt database so other stores can share it.
func (s *Storage) DB() *bbolt.DB {
	return s.db
}

// PutBlock records a block at the given height, indexes its hash and the
// location of every transaction in it.  Re-putting the identical block at
// the same height is a no-op; a different block at an occupied height fails
// with ErrHeightConflict.
func (s *Storage) PutBlock(height int32, block *wire.MsgBlock) error {
	blockHash := block.BlockHash()

	data, err := block.Bytes()
	if err != nil {
		return fmt.Errorf("failed to serialize block: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		heights := tx.Bucket(heightsBucket)
		heightKey := heightToKey(height)

		if existing := heights.Get(heightKey); existing != nil {
			if bytes.Equal(existing, blockHash[:]) {
				return nil
			}
			return fmt.Errorf("height %d: %w", height, ErrHeightConflict)
		}

		if err := tx.Bucket(blocksBucket).Put(blockHash[:], data); err != nil {
			return err
		}
		if err := heights.Put(heightKey, blockHash[:]); err != nil {
			return err
		}
		if err := tx.Bucket(hashHeightsBucket).Put(blockHash[:], heightKey); err != nil {
			return err
		}

		txIndex := tx.Bucket(txIndexBucket)
		for _, txHash := range block.TxHashes() {
			if err := txIndex.Put(txHash[:], blockHash[:]); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetBlock retrieves a block by its hash.
func (s *Storage) GetBlock(hash *chainhash.Hash) (*wire.MsgBlock, error) {
	var block wire.MsgBlock

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(blocksBucket).Get(hash[:])
		if data == nil {
			return fmt.Errorf("block %s: %w", hash, ErrNotFound)
		}
		return block.Deserialize(bytes.NewReader(data))
	})
	if err != nil {
		return nil, err
	}

	return &block, nil
}

// BlockHashByHeight returns the hash of the block at the given height.
func (s *Storage) BlockHashByHeight(height int32) (*chainhash.Hash, error) {
	var hash chainhash.Hash

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(heightsBucket).Get(heightToKey(height))
		if data == nil {
			return fmt.Errorf("height %d: %w", height, ErrNotFound)
		}
		copy(hash[:], data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &hash, nil
}

// BlockHeightByHash returns the height of the block with the given hash.
func (s *Storage) BlockHeightByHash(hash *chainhash.Hash) (int32, error) {
	var height int32

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(hashHeightsBucket).Get(hash[:])
		if data == nil {
			return fmt.Errorf("block %s: %w", hash, ErrNotFound)
		}
		height = keyToHeight(data)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return height, nil
}

// TxBlockHash returns the hash of the block containing the transaction with
// the given id.
func (s *Storage) TxBlockHash(txid *chainhash.Hash) (*chainhash.Hash, error) {
	var hash chainhash.Hash

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(txIndexBucket).Get(txid[:])
		if data == nil {
			return fmt.Errorf("transaction %s: %w", txid, ErrNotFound)
		}
		copy(hash[:], data)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &hash, nil
}

// TipHeight returns the height of the highest indexed block, or ErrNotFound
// when the store is empty.
func (s *Storage) TipHeight() (int32, error) {
	var height int32

	err := s.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(heightsBucket).Cursor().Last()
		if k == nil {
			return fmt.Errorf("tip: %w", ErrNotFound)
		}
		height = keyToHeight(k)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return height, nil
}

// heightToKey encodes a block height as a big-endian key so bolt's
// lexicographic ordering matches numeric ordering.
func heightToKey(height int32) []byte {
	key := make([]byte, 4)
	binary.BigEndian.PutUint32(key, uint32(height))
	return key
}

func keyToHeight(key []byte) int32 {
	return int32(binary.BigEndian.Uint32(key))
}
