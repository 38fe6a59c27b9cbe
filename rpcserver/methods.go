package rpcserver

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/btcutil"

	"github.com/Bitcoin-Clashic/clashicd/blockchain"
	"github.com/Bitcoin-Clashic/clashicd/crypto"
	"github.com/Bitcoin-Clashic/clashicd/database"
	"github.com/Bitcoin-Clashic/clashicd/wire"
)

// getBlockCount returns the current block height.
func (s *Server) getBlockCount(params []interface{}) (interface{}, error) {
	return s.chain.Height(), nil
}

// getBestBlockHash returns the hash of the best (tip) block.
func (s *Server) getBestBlockHash(params []interface{}) (interface{}, error) {
	hash := s.chain.BestHash()
	return hash.String(), nil
}

// getBlockHash returns the hash of the block at the given height.
func (s *Server) getBlockHash(params []interface{}) (interface{}, error) {
	if len(params) < 1 {
		return nil, rpcError(ErrRPCInvalidParameter, "missing height parameter")
	}

	heightFloat, ok := params[0].(float64)
	if !ok {
		return nil, rpcError(ErrRPCInvalidParameter, "invalid height parameter")
	}
	height := int32(heightFloat)

	hash, err := s.chain.BlockHashByHeight(height)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, rpcError(ErrRPCInvalidParameter, "Block height out of range")
		}
		return nil, err
	}

	return hash.String(), nil
}

// getBlock returns information about a block by hash.  The tx field lists
// transaction ids in block order: the coinbase txid is at index 0 regardless
// of whether its outputs are part of the UTXO set.
func (s *Server) getBlock(params []interface{}) (interface{}, error) {
	hash, rpcErr := hashParam(params, "block hash")
	if rpcErr != nil {
		return nil, rpcErr
	}

	block, err := s.chain.GetBlock(hash)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, rpcError(ErrRPCInvalidAddressOrKey, "Block not found")
		}
		return nil, err
	}

	height, err := s.chain.BlockHeightByHash(hash)
	if err != nil {
		return nil, err
	}

	txids := make([]string, 0, len(block.Transactions))
	for _, txHash := range block.TxHashes() {
		txids = append(txids, txHash.String())
	}

	return BlockInfo{
		Hash:       hash.String(),
		Height:     height,
		Version:    block.Header.Version,
		PrevBlock:  block.Header.PrevBlock.String(),
		MerkleRoot: block.Header.MerkleRoot.String(),
		Timestamp:  block.Header.Timestamp.Unix(),
		Bits:       block.Header.Bits,
		Nonce:      block.Header.Nonce,
		Tx:         txids,
	}, nil
}

// getBlockchainInfo returns general blockchain information.
func (s *Server) getBlockchainInfo(params []interface{}) (interface{}, error) {
	hash := s.chain.BestHash()
	return BlockchainInfo{
		Chain:         s.chain.Params().Name,
		Blocks:        s.chain.Height(),
		BestBlockHash: hash.String(),
	}, nil
}

// getTxOutSetInfo returns the aggregate view of the UTXO set.  The counters
// come from the store's consistent snapshot, so on a node that did not
// connect the genesis coinbase they are all zero.
func (s *Server) getTxOutSetInfo(params []interface{}) (interface{}, error) {
	stats, err := s.chain.UTXOSet().Stats()
	if err != nil {
		return nil, err
	}

	best := s.chain.BestHash()
	return TxOutSetInfo{
		Height:       s.chain.Height(),
		BestBlock:    best.String(),
		TxOuts:       stats.TxOuts,
		Transactions: stats.Transactions,
		TotalAmount:  stats.TotalAmount.ToBTC(),
	}, nil
}

// getRawTransaction returns the serialized transaction with the given id,
// hex encoded, or a decoded object when the verbose flag is set.
//
// The genesis coinbase is special-cased: on a node that did not connect it
// to the UTXO set the call fails with code -5 and a fixed message even
// though the transaction bytes exist in the block index.
func (s *Server) getRawTransaction(params []interface{}) (interface{}, error) {
	txid, rpcErr := hashParam(params, "txid")
	if rpcErr != nil {
		return nil, rpcErr
	}

	verbose := false
	if len(params) > 1 {
		v, ok := params[1].(bool)
		if !ok {
			return nil, rpcError(ErrRPCInvalidParameter, "invalid verbose parameter")
		}
		verbose = v
	}

	raw, err := s.chain.RawTransaction(txid)
	if err != nil {
		if errors.Is(err, blockchain.ErrGenesisCoinbaseUnavailable) {
			return nil, rpcError(ErrRPCInvalidAddressOrKey, err.Error())
		}
		if errors.Is(err, database.ErrNotFound) {
			return nil, rpcError(ErrRPCInvalidAddressOrKey,
				"No information available about transaction")
		}
		return nil, err
	}

	if !verbose {
		return hex.EncodeToString(raw), nil
	}

	tx, blockHash, err := s.chain.GetTransaction(txid)
	if err != nil {
		return nil, err
	}
	return s.decodeTransaction(tx, raw, blockHash), nil
}

// decodeTransaction renders a transaction as the verbose getrawtransaction
// result.
func (s *Server) decodeTransaction(tx *wire.MsgTx, raw []byte, blockHash *chainhash.Hash) RawTransactionInfo {
	txHash := tx.TxHash()

	vin := make([]VinInfo, 0, len(tx.TxIn))
	for _, txIn := range tx.TxIn {
		if tx.IsCoinbase() {
			vin = append(vin, VinInfo{
				Coinbase: hex.EncodeToString(txIn.SignatureScript),
				Sequence: txIn.Sequence,
			})
			continue
		}
		vin = append(vin, VinInfo{
			Txid:     txIn.PreviousOutPoint.Hash.String(),
			Vout:     txIn.PreviousOutPoint.Index,
			Sequence: txIn.Sequence,
		})
	}

	addrID := s.chain.Params().PubKeyHashAddrID
	vout := make([]VoutInfo, 0, len(tx.TxOut))
	for i, txOut := range tx.TxOut {
		scriptInfo := ScriptPubKeyInfo{Hex: hex.EncodeToString(txOut.PkScript)}
		if addr, ok := crypto.ExtractScriptAddress(txOut.PkScript, addrID); ok {
			scriptInfo.Address = addr
		}
		vout = append(vout, VoutInfo{
			Value:        btcutil.Amount(txOut.Value).ToBTC(),
			N:            uint32(i),
			ScriptPubKey: scriptInfo,
		})
	}

	info := RawTransactionInfo{
		Hex:      hex.EncodeToString(raw),
		Txid:     txHash.String(),
		Version:  tx.Version,
		LockTime: tx.LockTime,
		Vin:      vin,
		Vout:     vout,
	}
	if blockHash != nil {
		info.BlockHash = blockHash.String()
	}
	return info
}

// getTxOut returns details about an unspent transaction output, or null when
// the outpoint is not part of the UTXO set.
func (s *Server) getTxOut(params []interface{}) (interface{}, error) {
	txid, rpcErr := hashParam(params, "txid")
	if rpcErr != nil {
		return nil, rpcErr
	}

	if len(params) < 2 {
		return nil, rpcError(ErrRPCInvalidParameter, "missing vout parameter")
	}
	voutFloat, ok := params[1].(float64)
	if !ok {
		return nil, rpcError(ErrRPCInvalidParameter, "invalid vout parameter")
	}

	outpoint := wire.OutPoint{Hash: *txid, Index: uint32(voutFloat)}
	utxo, err := s.chain.UTXOSet().FetchUTXO(outpoint)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	scriptInfo := ScriptPubKeyInfo{Hex: hex.EncodeToString(utxo.PkScript)}
	if addr, ok := crypto.ExtractScriptAddress(utxo.PkScript, s.chain.Params().PubKeyHashAddrID); ok {
		scriptInfo.Address = addr
	}

	best := s.chain.BestHash()
	return TxOutResult{
		BestBlock:     best.String(),
		Confirmations: s.chain.Height() - utxo.Height + 1,
		Value:         btcutil.Amount(utxo.Value).ToBTC(),
		ScriptPubKey:  scriptInfo,
		Coinbase:      utxo.Coinbase,
	}, nil
}

// hashParam parses params[0] as a hex-encoded hash.
func hashParam(params []interface{}, name string) (*chainhash.Hash, *JSONRPCError) {
	if len(params) < 1 {
		return nil, rpcError(ErrRPCInvalidParameter, fmt.Sprintf("missing %s parameter", name))
	}

	str, ok := params[0].(string)
	if !ok {
		return nil, rpcError(ErrRPCInvalidParameter, fmt.Sprintf("invalid %s parameter", name))
	}

	hash, err := chainhash.NewHashFromStr(str)
	if err != nil {
		return nil, rpcError(ErrRPCInvalidParameter, fmt.Sprintf("invalid %s: %v", name, err))
	}
	return hash, nil
}
