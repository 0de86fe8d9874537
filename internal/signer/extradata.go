package signer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ExtraDataHex is the wire representation of empty extra data.
const ExtraDataHex = "0x"

// EmptyExtraDataHash is keccak256 of empty bytes. RFQ orders carry no extra
// data, so every struct hash binds this constant.
var EmptyExtraDataHash = common.HexToHash(
	"0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470")

// HashExtraData calculates the keccak256 hash of extraData.
func HashExtraData(extraData []byte) common.Hash {
	return crypto.Keccak256Hash(extraData)
}
