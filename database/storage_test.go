package database

import (
	"errors"
	"testing"

	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/Bitcoin-Clashic/clashicd/wire"
)

func testBlock(nonce uint32) *wire.MsgBlock {
	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  []byte{0x01, byte(nonce)},
		Sequence:         0xffffffff,
	})
	tx.AddTxOut(&wire.TxOut{Value: 5000000000, PkScript: []byte{0x51}})

	block := wire.NewMsgBlock(&wire.BlockHeader{
		Version: wire.BlockVersion,
		Bits:    0x1d00ffff,
		Nonce:   nonce,
	})
	block.AddTransaction(tx)
	return block
}

func openTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutAndGetBlock(t *testing.T) {
	s := openTestStorage(t)
	block := testBlock(1)
	hash := block.BlockHash()

	if err := s.PutBlock(0, block); err != nil {
		t.Fatalf("put block: %v", err)
	}

	got, err := s.GetBlock(&hash)
	if err != nil {
		t.Fatalf("get block: %v", err)
	}
	if got.BlockHash() != hash {
		t.Errorf("retrieved block hash %s, want %s", got.BlockHash(), hash)
	}

	gotHash, err := s.BlockHashByHeight(0)
	if err != nil {
		t.Fatalf("hash by height: %v", err)
	}
	if *gotHash != hash {
		t.Errorf("hash at height 0 is %s, want %s", gotHash, hash)
	}

	height, err := s.BlockHeightByHash(&hash)
	if err != nil {
		t.Fatalf("height by hash: %v", err)
	}
	if height != 0 {
		t.Errorf("height of block is %d, want 0", height)
	}
}

func TestPutBlockIdempotent(t *testing.T) {
	s := openTestStorage(t)
	block := testBlock(1)

	if err := s.PutBlock(0, block); err != nil {
		t.Fatalf("first put: %v", err)
	}
	if err := s.PutBlock(0, block); err != nil {
		t.Errorf("re-putting the same block should be a no-op, got %v", err)
	}
}

func TestPutBlockHeightConflict(t *testing.T) {
	s := openTestStorage(t)

	if err := s.PutBlock(0, testBlock(1)); err != nil {
		t.Fatalf("first put: %v", err)
	}

	err := s.PutBlock(0, testBlock(2))
	if !errors.Is(err, ErrHeightConflict) {
		t.Errorf("putting a different block at height 0 returned %v, want ErrHeightConflict", err)
	}
}

func TestTxIndex(t *testing.T) {
	s := openTestStorage(t)
	block := testBlock(1)
	blockHash := block.BlockHash()
	txid := block.Transactions[0].TxHash()

	if err := s.PutBlock(0, block); err != nil {
		t.Fatalf("put block: %v", err)
	}

	got, err := s.TxBlockHash(&txid)
	if err != nil {
		t.Fatalf("tx block hash: %v", err)
	}
	if *got != blockHash {
		t.Errorf("tx indexed under block %s, want %s", got, blockHash)
	}

	var unknown chainhash.Hash
	unknown[0] = 0xde
	if _, err := s.TxBlockHash(&unknown); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown txid returned %v, want ErrNotFound", err)
	}
}

func TestNotFound(t *testing.T) {
	s := openTestStorage(t)

	if _, err := s.BlockHashByHeight(0); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty store height lookup returned %v, want ErrNotFound", err)
	}
	if _, err := s.TipHeight(); !errors.Is(err, ErrNotFound) {
		t.Errorf("empty store tip returned %v, want ErrNotFound", err)
	}
}

func TestTipHeight(t *testing.T) {
	s := openTestStorage(t)

	if err := s.PutBlock(0, testBlock(1)); err != nil {
		t.Fatalf("put genesis: %v", err)
	}
	if err := s.PutBlock(1, testBlock(2)); err != nil {
		t.Fatalf("put block 1: %v", err)
	}

	tip, err := s.TipHeight()
	if err != nil {
		t.Fatalf("tip height: %v", err)
	}
	if tip != 1 {
		t.Errorf("tip height is %d, want 1", tip)
	}
}
