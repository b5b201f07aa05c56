package document

import (
	"encoding/json"
	"fmt"

	"github.com/FocuswithJustin/ucp/core/errors"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// Snapshot is the structured export of a document. Blocks are listed in
// pre-order starting at the root.
type Snapshot struct {
	ID     string          `json:"id"`
	Title  string          `json:"title,omitempty"`
	RootID BlockID         `json:"rootId"`
	Blocks []BlockSnapshot `json:"blocks"`
	// NextSeq is the id allocation counter. It keeps ids of removed blocks
	// from being handed out again after a reload.
	NextSeq uint64 `json:"nextSeq,omitempty"`
}

// BlockSnapshot is the exported form of a Block.
type BlockSnapshot struct {
	ID       BlockID         `json:"id"`
	Role     string          `json:"role"`
	Content  ContentSnapshot `json:"content"`
	Children []BlockID       `json:"children"`
}

// ContentSnapshot wraps a Content value for JSON encoding as
// {"kind": ..., ...fields}.
type ContentSnapshot struct {
	Content Content
}

// MarshalJSON encodes the content with its kind tag.
func (c ContentSnapshot) MarshalJSON() ([]byte, error) {
	switch v := c.Content.(type) {
	case Text:
		return json.Marshal(struct {
			Kind ContentKind `json:"kind"`
			Text string      `json:"text"`
		}{KindText, v.Body})
	case Code:
		return json.Marshal(struct {
			Kind     ContentKind `json:"kind"`
			Language string      `json:"language"`
			Text     string      `json:"text"`
		}{KindCode, v.Language, v.Body})
	case Opaque:
		fields := make(map[string]json.RawMessage, len(v.Fields)+1)
		for k, raw := range v.Fields {
			fields[k] = raw
		}
		kind, err := json.Marshal(v.Type)
		if err != nil {
			return nil, err
		}
		fields["kind"] = kind
		return json.Marshal(fields)
	case nil:
		return nil, fmt.Errorf("block has no content")
	default:
		return nil, fmt.Errorf("unknown content type %T", v)
	}
}

// UnmarshalJSON decodes a kind-tagged content object. Unknown kinds become
// Opaque values that keep their fields.
func (c *ContentSnapshot) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	rawKind, ok := fields["kind"]
	if !ok {
		return fmt.Errorf("content kind is required")
	}
	var kind ContentKind
	if err := json.Unmarshal(rawKind, &kind); err != nil {
		return fmt.Errorf("content kind: %w", err)
	}
	if kind == "" {
		return fmt.Errorf("content kind is required")
	}

	switch kind {
	case KindText:
		var v struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		c.Content = Text{Body: v.Text}
	case KindCode:
		var v struct {
			Language string `json:"language"`
			Text     string `json:"text"`
		}
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		c.Content = Code{Language: v.Language, Body: v.Text}
	default:
		delete(fields, "kind")
		c.Content = Opaque{Type: kind, Fields: fields}
	}
	return nil
}

// Snapshot exports the document. Blocks reachable from the root come first
// in pre-order; blocks that are not reachable follow, sorted by id.
func (d *Document) Snapshot() *Snapshot {
	s := &Snapshot{
		ID:      d.id,
		Title:   d.title,
		RootID:  d.rootID,
		Blocks:  make([]BlockSnapshot, 0, len(d.blocks)),
		NextSeq: d.seq,
	}

	for _, id := range d.orderedIDs() {
		s.Blocks = append(s.Blocks, snapshotBlock(d.blocks[id]))
	}
	return s
}

func snapshotBlock(b *Block) BlockSnapshot {
	children := make([]BlockID, len(b.Children))
	copy(children, b.Children)
	return BlockSnapshot{
		ID:       b.ID,
		Role:     b.Role,
		Content:  ContentSnapshot{Content: cloneContent(b.Content)},
		Children: children,
	}
}

// ToJSON serializes the document.
func (d *Document) ToJSON() ([]byte, error) {
	data, err := jsonMarshal(d.Snapshot())
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal document")
	}
	return data, nil
}

// FromJSON restores a document produced by ToJSON.
//
// Ids must be present and unique and the root must exist. Tree shape is not
// enforced: dangling children, cycles, shared children and orphans load as
// they are and are reported by Validate.
func FromJSON(data []byte) (*Document, error) {
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, &errors.ParseError{Format: "JSON", Message: err.Error(), Err: err}
	}
	return FromSnapshot(&s)
}

// FromSnapshot builds a document from a structured export.
func FromSnapshot(s *Snapshot) (*Document, error) {
	if s == nil {
		return nil, errors.NewParse("document", "", "snapshot is nil")
	}
	if s.ID == "" {
		return nil, errors.NewParse("document", "", "document id is required")
	}
	if s.RootID == "" {
		return nil, errors.NewParse("document", "", "root id is required")
	}

	d := &Document{
		id:      s.ID,
		title:   s.Title,
		rootID:  s.RootID,
		blocks:  make(map[BlockID]*Block, len(s.Blocks)),
		parents: make(map[BlockID]BlockID, len(s.Blocks)),
	}

	for i, bs := range s.Blocks {
		if bs.ID == "" {
			return nil, errors.NewParse("document", "", fmt.Sprintf("blocks[%d]: id is required", i))
		}
		if _, dup := d.blocks[bs.ID]; dup {
			return nil, errors.NewParse("document", "", fmt.Sprintf("blocks[%d]: duplicate id %s", i, bs.ID))
		}
		if bs.Content.Content == nil {
			return nil, errors.NewParse("document", "", fmt.Sprintf("blocks[%d]: content is required", i))
		}
		b := &Block{
			ID:      bs.ID,
			Role:    bs.Role,
			Content: cloneContent(bs.Content.Content),
			root:    bs.ID == s.RootID,
		}
		if len(bs.Children) > 0 {
			b.Children = append([]BlockID(nil), bs.Children...)
		}
		d.blocks[bs.ID] = b
	}

	if _, ok := d.blocks[d.rootID]; !ok {
		return nil, errors.NewParse("document", "", fmt.Sprintf("root block %s is missing", d.rootID))
	}

	for _, bs := range s.Blocks {
		for _, child := range bs.Children {
			if child == d.rootID {
				continue
			}
			if _, taken := d.parents[child]; !taken {
				d.parents[child] = bs.ID
			}
		}
	}

	d.seq = uint64(len(d.blocks))
	if s.NextSeq > d.seq {
		d.seq = s.NextSeq
	}
	return d, nil
}
