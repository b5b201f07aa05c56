package document

import (
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"
)

// RootBlockID is the id of the root block in every document.
const RootBlockID BlockID = "blk_ff0000000000000000000000"

const (
	blockIDPrefix    = "blk_"
	documentIDPrefix = "doc_"

	// blockIDBytes is the number of digest bytes kept in a block id.
	blockIDBytes = 12
)

// newUUID is injectable for deterministic document ids in tests.
var newUUID = uuid.New

// newDocumentID returns a fresh document id.
func newDocumentID() string {
	u := newUUID()
	return documentIDPrefix + hex.EncodeToString(u[:])
}

// deriveBlockID computes the block id for the given allocation sequence.
func deriveBlockID(docID string, seq uint64) BlockID {
	sum := blake3.Sum256([]byte(docID + "/" + strconv.FormatUint(seq, 10)))
	return BlockID(blockIDPrefix + hex.EncodeToString(sum[:blockIDBytes]))
}

// IsBlockID reports whether s has the shape of a block id.
func IsBlockID(s string) bool {
	if !strings.HasPrefix(s, blockIDPrefix) {
		return false
	}
	rest := s[len(blockIDPrefix):]
	if len(rest) != blockIDBytes*2 {
		return false
	}
	_, err := hex.DecodeString(rest)
	return err == nil && strings.ToLower(rest) == rest
}
