package document

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/ucp/core/errors"
)

// HashBytes computes the BLAKE3 hash of bytes and returns it as a hex string.
func HashBytes(data []byte) string {
	h := blake3.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Hash computes the BLAKE3 hash of the document's JSON export without the id
// allocation counter. Two documents with equal ids, roles, content and child
// order hash the same.
func (d *Document) Hash() (string, error) {
	s := d.Snapshot()
	s.NextSeq = 0
	data, err := jsonMarshal(s)
	if err != nil {
		return "", errors.Wrap(err, "failed to marshal document")
	}
	return HashBytes(data), nil
}
