package blockchain

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/Bitcoin-Clashic/clashicd/chaincfg"
	"github.com/Bitcoin-Clashic/clashicd/database"
	"github.com/Bitcoin-Clashic/clashicd/wire"
)

func newTestChain(t *testing.T, connectGenesisCoinbase bool) *BlockChain {
	t.Helper()

	db, err := database.NewStorage(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	chain, err := New(&chaincfg.MainNetParams, db, connectGenesisCoinbase)
	if err != nil {
		t.Fatalf("failed to initialize chain: %v", err)
	}
	return chain
}

func TestGenesisHashConfigurationIndependent(t *testing.T) {
	disconnected := newTestChain(t, false)
	connected := newTestChain(t, true)

	hash0, err := disconnected.BlockHashByHeight(0)
	if err != nil {
		t.Fatalf("hash by height on disconnected node: %v", err)
	}
	hash1, err := connected.BlockHashByHeight(0)
	if err != nil {
		t.Fatalf("hash by height on connected node: %v", err)
	}

	if *hash0 != *hash1 {
		t.Errorf("genesis hash differs across configurations: %s vs %s", hash0, hash1)
	}
	if *hash0 != *chaincfg.MainNetParams.GenesisHash {
		t.Errorf("genesis hash is %s, want %s", hash0, chaincfg.MainNetParams.GenesisHash)
	}
}

func TestUTXOSetInfoDisconnected(t *testing.T) {
	chain := newTestChain(t, false)

	stats, err := chain.UTXOSet().Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TxOuts != 0 || stats.Transactions != 0 || stats.TotalAmount != 0 {
		t.Errorf("disconnected node stats = %+v, want all zero", stats)
	}
	if chain.GenesisConnected() {
		t.Error("GenesisConnected() = true on a disconnected node")
	}
}

func TestUTXOSetInfoConnected(t *testing.T) {
	chain := newTestChain(t, true)

	stats, err := chain.UTXOSet().Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TxOuts != 1 {
		t.Errorf("txouts = %d, want 1", stats.TxOuts)
	}
	if stats.Transactions != 1 {
		t.Errorf("transactions = %d, want 1", stats.Transactions)
	}
	if int64(stats.TotalAmount) != chaincfg.MainNetParams.GenesisReward {
		t.Errorf("total amount = %d, want %d", stats.TotalAmount, chaincfg.MainNetParams.GenesisReward)
	}
	if got := stats.TotalAmount.ToBTC(); got != 50.0 {
		t.Errorf("total amount in coins = %v, want 50", got)
	}
	if !chain.GenesisConnected() {
		t.Error("GenesisConnected() = false on a connected node")
	}
}

func TestRawTransactionGenesisCoinbaseDisconnected(t *testing.T) {
	chain := newTestChain(t, false)
	txid := chain.GenesisCoinbaseTxID()

	_, err := chain.RawTransaction(&txid)
	if !errors.Is(err, ErrGenesisCoinbaseUnavailable) {
		t.Fatalf("raw transaction returned %v, want ErrGenesisCoinbaseUnavailable", err)
	}

	wantMsg := "The genesis block coinbase is not considered an ordinary " +
		"transaction and cannot be retrieved"
	if err.Error() != wantMsg {
		t.Errorf("error message is %q, want %q", err.Error(), wantMsg)
	}
}

func TestRawTransactionGenesisCoinbaseConnected(t *testing.T) {
	chain := newTestChain(t, true)
	txid := chain.GenesisCoinbaseTxID()

	raw, err := chain.RawTransaction(&txid)
	if err != nil {
		t.Fatalf("raw transaction: %v", err)
	}

	var tx wire.MsgTx
	if err := tx.Deserialize(bytes.NewReader(raw)); err != nil {
		t.Fatalf("returned bytes do not decode: %v", err)
	}
	if tx.TxHash() != txid {
		t.Errorf("decoded txid is %s, want %s", tx.TxHash(), txid)
	}
	if !tx.IsCoinbase() {
		t.Error("decoded transaction is not a coinbase")
	}
}

func TestRawTransactionUnknownTx(t *testing.T) {
	chain := newTestChain(t, true)

	var unknown chainhash.Hash
	unknown[0] = 0xab

	_, err := chain.RawTransaction(&unknown)
	if !errors.Is(err, database.ErrNotFound) {
		t.Errorf("unknown txid returned %v, want ErrNotFound", err)
	}
}

func TestInitializationIdempotent(t *testing.T) {
	dir := t.TempDir()

	db, err := database.NewStorage(dir)
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	if _, err := New(&chaincfg.MainNetParams, db, true); err != nil {
		t.Fatalf("first initialization: %v", err)
	}
	db.Close()

	// Restarting against initialized storage must not duplicate records,
	// even when the configuration flag flipped between runs: the stored
	// state wins.
	db, err = database.NewStorage(dir)
	if err != nil {
		t.Fatalf("reopen storage: %v", err)
	}
	defer db.Close()

	chain, err := New(&chaincfg.MainNetParams, db, false)
	if err != nil {
		t.Fatalf("second initialization: %v", err)
	}

	stats, err := chain.UTXOSet().Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TxOuts != 1 || stats.Transactions != 1 {
		t.Errorf("stats after reinitialization = %+v, want {1 1 %d}", stats, chaincfg.MainNetParams.GenesisReward)
	}
	if !chain.GenesisConnected() {
		t.Error("connection state not derived from stored chainstate")
	}

	txid := chain.GenesisCoinbaseTxID()
	if _, err := chain.RawTransaction(&txid); err != nil {
		t.Errorf("genesis coinbase should stay retrievable after restart, got %v", err)
	}
}

func TestConnectBlock(t *testing.T) {
	chain := newTestChain(t, false)
	subsidy := chain.Params().CalcBlockSubsidy(1)

	coinbase := wire.NewMsgTx(wire.TxVersion)
	coinbase.AddTxIn(&wire.TxIn{
		PreviousOutPoint: wire.OutPoint{Index: wire.MaxPrevOutIndex},
		SignatureScript:  []byte{0x01, 0x01},
		Sequence:         0xffffffff,
	})
	coinbase.AddTxOut(&wire.TxOut{Value: subsidy, PkScript: []byte{0x51}})

	block := wire.NewMsgBlock(&wire.BlockHeader{
		Version:    wire.BlockVersion,
		PrevBlock:  chain.BestHash(),
		MerkleRoot: coinbase.TxHash(),
		Timestamp:  time.Unix(1231469665, 0),
		Bits:       0x1d00ffff,
	})
	block.AddTransaction(coinbase)

	if err := chain.ConnectBlock(block); err != nil {
		t.Fatalf("connect block: %v", err)
	}

	if chain.Height() != 1 {
		t.Errorf("height = %d, want 1", chain.Height())
	}
	if chain.BestHash() != block.BlockHash() {
		t.Errorf("best hash = %s, want %s", chain.BestHash(), block.BlockHash())
	}

	stats, _ := chain.UTXOSet().Stats()
	if stats.TxOuts != 1 || int64(stats.TotalAmount) != subsidy {
		t.Errorf("stats after connect = %+v, want {1 1 %d}", stats, subsidy)
	}
	if stats.TotalAmount != btcutil.Amount(subsidy) {
		t.Errorf("amount type mismatch: %v", stats.TotalAmount)
	}

	// The new coinbase is retrievable; genesis policy still applies.
	txid := coinbase.TxHash()
	if _, err := chain.RawTransaction(&txid); err != nil {
		t.Errorf("block 1 coinbase not retrievable: %v", err)
	}
	genesisTxid := chain.GenesisCoinbaseTxID()
	if _, err := chain.RawTransaction(&genesisTxid); !errors.Is(err, ErrGenesisCoinbaseUnavailable) {
		t.Errorf("genesis coinbase policy changed after connecting a block: %v", err)
	}

	// A block that does not extend the tip is rejected.
	stale := wire.NewMsgBlock(&wire.BlockHeader{
		Version:   wire.BlockVersion,
		PrevBlock: *chain.Params().GenesisHash,
		Bits:      0x1d00ffff,
		Nonce:     7,
	})
	stale.AddTransaction(coinbase)
	if err := chain.ConnectBlock(stale); err == nil {
		t.Error("connecting a non-extending block should fail")
	}
}
