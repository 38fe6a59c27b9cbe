package chaincfg

import "testing"

const (
	wantGenesisHash   = "000000000019d6689c085ae165831e934ff763ae46a2a6c172b3f1b60a8ce26f"
	wantGenesisTxHash = "4a5e1e4baab89f3a32518a88c31bc87f618f76673e2cc77ab2127b7afdeda33b"
)

func TestGenesisBlockHash(t *testing.T) {
	hash := MainNetParams.GenesisBlock.BlockHash()

	if hash != *MainNetParams.GenesisHash {
		t.Errorf("genesis block hash %s does not match params hash %s",
			hash, MainNetParams.GenesisHash)
	}

	if hash.String() != wantGenesisHash {
		t.Errorf("genesis block hash is %s, want %s", hash, wantGenesisHash)
	}
}

func TestGenesisCoinbaseTxHash(t *testing.T) {
	tx := MainNetParams.GenesisCoinbaseTx()

	hash := tx.TxHash()
	if hash.String() != wantGenesisTxHash {
		t.Errorf("genesis coinbase txid is %s, want %s", hash, wantGenesisTxHash)
	}

	// The genesis block has a single transaction, so the merkle root is
	// the coinbase txid.
	if hash != MainNetParams.GenesisBlock.Header.MerkleRoot {
		t.Errorf("genesis coinbase txid %s does not match merkle root %s",
			hash, MainNetParams.GenesisBlock.Header.MerkleRoot)
	}
}

func TestGenesisCoinbaseShape(t *testing.T) {
	block := MainNetParams.GenesisBlock

	if len(block.Transactions) != 1 {
		t.Fatalf("genesis block has %d transactions, want 1", len(block.Transactions))
	}

	tx := block.Transactions[0]
	if !tx.IsCoinbase() {
		t.Error("genesis transaction is not recognized as a coinbase")
	}

	if len(tx.TxOut) != 1 {
		t.Fatalf("genesis coinbase has %d outputs, want 1", len(tx.TxOut))
	}

	if tx.TxOut[0].Value != MainNetParams.GenesisReward {
		t.Errorf("genesis coinbase value is %d, want %d",
			tx.TxOut[0].Value, MainNetParams.GenesisReward)
	}
}

func TestCalcBlockSubsidy(t *testing.T) {
	params := MainNetParams

	tests := []struct {
		height int32
		want   int64
	}{
		{0, 50 * SatoshiPerCoin},
		{209999, 50 * SatoshiPerCoin},
		{210000, 25 * SatoshiPerCoin},
		{419999, 25 * SatoshiPerCoin},
		{420000, 1250000000},
		{630000, 625000000},
	}

	for _, test := range tests {
		got := params.CalcBlockSubsidy(test.height)
		if got != test.want {
			t.Errorf("subsidy at height %d = %d, want %d", test.height, got, test.want)
		}
	}
}

func TestTotalSupplyAtHeight(t *testing.T) {
	params := MainNetParams

	// Genesis only.
	if got := params.TotalSupplyAtHeight(0); got != params.GenesisReward {
		t.Errorf("supply at height 0 = %d, want %d", got, params.GenesisReward)
	}

	// Ten blocks after genesis, all at full subsidy.
	want := params.GenesisReward + 10*params.BaseSubsidy
	if got := params.TotalSupplyAtHeight(10); got != want {
		t.Errorf("supply at height 10 = %d, want %d", got, want)
	}
}
