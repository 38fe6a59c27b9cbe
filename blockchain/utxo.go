package blockchain

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/btcutil"
	bolt "go.etcd.io/bbolt"

	"github.com/Bitcoin-Clashic/clashicd/database"
	"github.com/Bitcoin-Clashic/clashicd/wire"
)

var (
	utxoBucketName  = []byte("utxo")
	statsBucketName = []byte("utxostats")
)

// Stats bucket keys.  Each holds a big-endian uint64 so the aggregate
// snapshot is maintained incrementally instead of by full scan.
var (
	statsKeyTxOuts       = []byte("txouts")
	statsKeyTransactions = []byte("transactions")
	statsKeyTotalAmount  = []byte("totalamount")
)

// ErrDuplicateKey is returned when inserting a UTXO for an outpoint that
// already exists.  It indicates inconsistent chain data and is fatal during
// initialization.
var ErrDuplicateKey = errors.New("outpoint already exists in utxo set")

// UTXO represents an unspent transaction output.
type UTXO struct {
	TxHash   chainhash.Hash
	Index    uint32
	Value    int64
	PkScript []byte
	Height   int32
	Coinbase bool
}

// UTXOStats is the aggregate view of the UTXO set.  TotalAmount is the sum
// of all live record values; Transactions counts distinct transaction ids
// represented in the set, so Transactions <= TxOuts always holds.
type UTXOStats struct {
	TxOuts       uint64
	Transactions uint64
	TotalAmount  btcutil.Amount
}

// UTXOSet is the persistent set of unspent transaction outputs.  All
// mutations update the aggregate counters in the same bolt transaction, so a
// snapshot never observes a partial update.
type UTXOSet struct {
	db *bolt.DB
	mu sync.RWMutex
}

// NewUTXOSet creates a new UTXO set on top of the given database.
func NewUTXOSet(db *bolt.DB) *UTXOSet {
	return &UTXOSet{db: db}
}

// AddUTXO adds an unspent output to the set.  Fails with ErrDuplicateKey if
// the outpoint is already present.
func (u *UTXOSet) AddUTXO(outpoint wire.OutPoint, txOut *wire.TxOut, height int32, coinbase bool) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(utxoBucketName)
		if err != nil {
			return err
		}
		return u.putUTXO(tx, bucket, outpoint, txOut, height, coinbase)
	})
}

// SpendUTXO removes an unspent output from the set, updating the aggregate
// counters.  Fails with database.ErrNotFound if the outpoint is absent.
func (u *UTXOSet) SpendUTXO(outpoint wire.OutPoint) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(utxoBucketName)
		if bucket == nil {
			return fmt.Errorf("outpoint %s:%d: %w", outpoint.Hash, outpoint.Index, database.ErrNotFound)
		}
		return u.deleteUTXO(tx, bucket, outpoint)
	})
}

// FetchUTXO retrieves an unspent output by outpoint.
func (u *UTXOSet) FetchUTXO(outpoint wire.OutPoint) (*UTXO, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	var utxo *UTXO
	err := u.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(utxoBucketName)
		if bucket == nil {
			return fmt.Errorf("outpoint %s:%d: %w", outpoint.Hash, outpoint.Index, database.ErrNotFound)
		}

		data := bucket.Get(makeUTXOKey(outpoint))
		if data == nil {
			return fmt.Errorf("outpoint %s:%d: %w", outpoint.Hash, outpoint.Index, database.ErrNotFound)
		}

		var err error
		utxo, err = deserializeUTXO(outpoint, data)
		return err
	})
	if err != nil {
		return nil, err
	}

	return utxo, nil
}

// HaveUTXO reports whether the given outpoint is present in the set.
func (u *UTXOSet) HaveUTXO(outpoint wire.OutPoint) (bool, error) {
	_, err := u.FetchUTXO(outpoint)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Stats returns the aggregate snapshot of the set.  The counters are read in
// a single view transaction, so the snapshot is consistent with respect to
// concurrent mutations.
func (u *UTXOSet) Stats() (*UTXOStats, error) {
	u.mu.RLock()
	defer u.mu.RUnlock()

	stats := &UTXOStats{}
	err := u.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(statsBucketName)
		if bucket == nil {
			// Nothing has ever been inserted.
			return nil
		}
		stats.TxOuts = readCounter(bucket, statsKeyTxOuts)
		stats.Transactions = readCounter(bucket, statsKeyTransactions)
		stats.TotalAmount = btcutil.Amount(readCounter(bucket, statsKeyTotalAmount))
		return nil
	})
	if err != nil {
		return nil, err
	}

	return stats, nil
}

// ApplyBlock applies a block's transactions to the UTXO set in a single
// database transaction: inputs of non-coinbase transactions are spent and
// all outputs are added.
func (u *UTXOSet) ApplyBlock(block *wire.MsgBlock, height int32) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	return u.db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists(utxoBucketName)
		if err != nil {
			return err
		}

		for _, msgTx := range block.Transactions {
			txHash := msgTx.TxHash()
			coinbase := msgTx.IsCoinbase()

			if !coinbase {
				for _, txIn := range msgTx.TxIn {
					if err := u.deleteUTXO(tx, bucket, txIn.PreviousOutPoint); err != nil {
						return err
					}
				}
			}

			for i, txOut := range msgTx.TxOut {
				outpoint := wire.OutPoint{Hash: txHash, Index: uint32(i)}
				if err := u.putUTXO(tx, bucket, outpoint, txOut, height, coinbase); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// putUTXO inserts a record and updates the counters within the caller's bolt
// transaction.
func (u *UTXOSet) putUTXO(tx *bolt.Tx, bucket *bolt.Bucket, outpoint wire.OutPoint, txOut *wire.TxOut, height int32, coinbase bool) error {
	key := makeUTXOKey(outpoint)
	if bucket.Get(key) != nil {
		return fmt.Errorf("outpoint %s:%d: %w", outpoint.Hash, outpoint.Index, ErrDuplicateKey)
	}

	// The transaction counter only advances when this is the first live
	// output of its transaction.
	firstForTx := !hasOutputsForTx(bucket, outpoint.Hash[:])

	if err := bucket.Put(key, serializeUTXO(txOut.Value, txOut.PkScript, height, coinbase)); err != nil {
		return err
	}

	stats, err := tx.CreateBucketIfNotExists(statsBucketName)
	if err != nil {
		return err
	}
	if err := addToCounter(stats, statsKeyTxOuts, 1); err != nil {
		return err
	}
	if err := addToCounter(stats, statsKeyTotalAmount, txOut.Value); err != nil {
		return err
	}
	if firstForTx {
		if err := addToCounter(stats, statsKeyTransactions, 1); err != nil {
			return err
		}
	}
	return nil
}

// deleteUTXO removes a record and updates the counters within the caller's
// bolt transaction.
func (u *UTXOSet) deleteUTXO(tx *bolt.Tx, bucket *bolt.Bucket, outpoint wire.OutPoint) error {
	key := makeUTXOKey(outpoint)
	data := bucket.Get(key)
	if data == nil {
		return fmt.Errorf("outpoint %s:%d: %w", outpoint.Hash, outpoint.Index, database.ErrNotFound)
	}

	utxo, err := deserializeUTXO(outpoint, data)
	if err != nil {
		return err
	}

	if err := bucket.Delete(key); err != nil {
		return err
	}

	lastForTx := !hasOutputsForTx(bucket, outpoint.Hash[:])

	stats, err := tx.CreateBucketIfNotExists(statsBucketName)
	if err != nil {
		return err
	}
	if err := addToCounter(stats, statsKeyTxOuts, -1); err != nil {
		return err
	}
	if err := addToCounter(stats, statsKeyTotalAmount, -utxo.Value); err != nil {
		return err
	}
	if lastForTx {
		if err := addToCounter(stats, statsKeyTransactions, -1); err != nil {
			return err
		}
	}
	return nil
}

// hasOutputsForTx reports whether any live output keyed under the given txid
// prefix exists in the bucket.
func hasOutputsForTx(bucket *bolt.Bucket, txid []byte) bool {
	k, _ := bucket.Cursor().Seek(txid)
	return k != nil && bytes.HasPrefix(k, txid)
}

func readCounter(bucket *bolt.Bucket, key []byte) uint64 {
	data := bucket.Get(key)
	if data == nil {
		return 0
	}
	return binary.BigEndian.Uint64(data)
}

func addToCounter(bucket *bolt.Bucket, key []byte, delta int64) error {
	value := int64(readCounter(bucket, key)) + delta
	if value < 0 {
		return fmt.Errorf("utxo counter %s underflow", key)
	}

	data := make([]byte, 8)
	binary.BigEndian.PutUint64(data, uint64(value))
	return bucket.Put(key, data)
}

// Helper functions

func makeUTXOKey(outpoint wire.OutPoint) []byte {
	key := make([]byte, 32+4)
	copy(key[:32], outpoint.Hash[:])
	binary.BigEndian.PutUint32(key[32:], outpoint.Index)
	return key
}

// serializeUTXO encodes a record as value(8) + height(4) + flags(1) +
// scriptLen(2) + script.
func serializeUTXO(value int64, pkScript []byte, height int32, coinbase bool) []byte {
	data := make([]byte, 8+4+1+2+len(pkScript))

	offset := 0
	binary.LittleEndian.PutUint64(data[offset:], uint64(value))
	offset += 8

	binary.LittleEndian.PutUint32(data[offset:], uint32(height))
	offset += 4

	if coinbase {
		data[offset] = 1
	}
	offset++

	binary.LittleEndian.PutUint16(data[offset:], uint16(len(pkScript)))
	offset += 2

	copy(data[offset:], pkScript)
	return data
}

func deserializeUTXO(outpoint wire.OutPoint, data []byte) (*UTXO, error) {
	if len(data) < 8+4+1+2 {
		return nil, fmt.Errorf("invalid utxo record for %s:%d", outpoint.Hash, outpoint.Index)
	}

	utxo := &UTXO{
		TxHash: outpoint.Hash,
		Index:  outpoint.Index,
	}

	offset := 0
	utxo.Value = int64(binary.LittleEndian.Uint64(data[offset:]))
	offset += 8

	utxo.Height = int32(binary.LittleEndian.Uint32(data[offset:]))
	offset += 4

	utxo.Coinbase = data[offset] == 1
	offset++

	scriptLen := binary.LittleEndian.Uint16(data[offset:])
	offset += 2

	utxo.PkScript = make([]byte, scriptLen)
	copy(utxo.PkScript, data[offset:])

	return utxo, nil
}
