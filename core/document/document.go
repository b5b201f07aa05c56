package document

import (
	"github.com/FocuswithJustin/ucp/core/errors"
)

// Document owns a tree of blocks rooted at RootID.
type Document struct {
	id     string
	title  string
	rootID BlockID

	blocks map[BlockID]*Block

	// parents maps every non-root block to the block that lists it as a
	// child. It is kept in sync by every mutation.
	parents map[BlockID]BlockID

	// seq is the next allocation sequence for deriveBlockID.
	seq uint64
}

// New creates a document with a fresh id and an empty root block.
func New(title string) *Document {
	d := &Document{
		id:      newDocumentID(),
		title:   title,
		rootID:  RootBlockID,
		blocks:  make(map[BlockID]*Block),
		parents: make(map[BlockID]BlockID),
		seq:     1,
	}
	d.blocks[d.rootID] = &Block{
		ID:      d.rootID,
		Role:    RoleRoot,
		Content: Text{},
		root:    true,
	}
	return d
}

// ID returns the document id.
func (d *Document) ID() string {
	return d.id
}

// Title returns the title given at creation, possibly empty.
func (d *Document) Title() string {
	return d.title
}

// RootID returns the id of the root block.
func (d *Document) RootID() BlockID {
	return d.rootID
}

// AddBlock appends a Text block under parent.
func (d *Document) AddBlock(parent BlockID, text, role string) (BlockID, error) {
	return d.AddBlockWithContent(parent, Text{Body: text}, role)
}

// AddCode appends a Code block under parent. The new block has no role.
func (d *Document) AddCode(parent BlockID, language, body string) (BlockID, error) {
	return d.AddBlockWithContent(parent, Code{Language: language, Body: body}, "")
}

// AddBlockWithContent appends a block carrying c as the last child of parent.
func (d *Document) AddBlockWithContent(parent BlockID, c Content, role string) (BlockID, error) {
	p, ok := d.blocks[parent]
	if !ok {
		return "", errors.NewNotFound("block", string(parent))
	}
	if c == nil {
		return "", errors.NewInvalidOperation("add block", "content is required")
	}
	if err := checkContent(c); err != nil {
		return "", errors.NewInvalidOperation("add block", err.Error())
	}

	id := d.allocateID()
	d.blocks[id] = &Block{
		ID:      id,
		Role:    role,
		Content: cloneContent(c),
	}
	p.Children = append(p.Children, id)
	d.parents[id] = parent
	return id, nil
}

// allocateID returns the next unused block id.
func (d *Document) allocateID() BlockID {
	for {
		id := deriveBlockID(d.id, d.seq)
		d.seq++
		if _, taken := d.blocks[id]; !taken && id != d.rootID {
			return id
		}
	}
}

// GetBlock returns a copy of the block with the given id.
func (d *Document) GetBlock(id BlockID) (*Block, error) {
	b, ok := d.blocks[id]
	if !ok {
		return nil, errors.NewNotFound("block", string(id))
	}
	return b.clone(), nil
}

// HasBlock reports whether id names a block in this document.
func (d *Document) HasBlock(id BlockID) bool {
	_, ok := d.blocks[id]
	return ok
}

// BlockCount returns the number of blocks, root included.
func (d *Document) BlockCount() int {
	return len(d.blocks)
}

// Children returns the child ids of id in order.
func (d *Document) Children(id BlockID) ([]BlockID, error) {
	b, ok := d.blocks[id]
	if !ok {
		return nil, errors.NewNotFound("block", string(id))
	}
	return append([]BlockID{}, b.Children...), nil
}

// Parent returns the parent of id. The boolean is false for the root.
func (d *Document) Parent(id BlockID) (BlockID, bool, error) {
	if _, ok := d.blocks[id]; !ok {
		return "", false, errors.NewNotFound("block", string(id))
	}
	p, ok := d.parents[id]
	return p, ok, nil
}

// SetBlockContent replaces the content of id, keeping its id, role and
// children.
func (d *Document) SetBlockContent(id BlockID, c Content) error {
	b, ok := d.blocks[id]
	if !ok {
		return errors.NewNotFound("block", string(id))
	}
	if c == nil {
		return errors.NewInvalidOperation("set content", "content is required")
	}
	if err := checkContent(c); err != nil {
		return errors.NewInvalidOperation("set content", err.Error())
	}
	b.Content = cloneContent(c)
	return nil
}

// RemoveBlock detaches id from its parent and deletes it together with its
// whole subtree. It returns the removed ids in pre-order.
func (d *Document) RemoveBlock(id BlockID) ([]BlockID, error) {
	if id == d.rootID {
		return nil, errors.NewInvalidOperation("remove block", "the root block cannot be removed")
	}
	if _, ok := d.blocks[id]; !ok {
		return nil, errors.NewNotFound("block", string(id))
	}

	var removed []BlockID
	d.walkFrom(id, func(b *Block) bool {
		if b.ID == d.rootID {
			return false
		}
		removed = append(removed, b.ID)
		return true
	})

	if parentID, ok := d.parents[id]; ok {
		if p, ok := d.blocks[parentID]; ok {
			p.Children = removeID(p.Children, id)
		}
	}
	for _, rid := range removed {
		delete(d.blocks, rid)
		delete(d.parents, rid)
	}
	return removed, nil
}

func removeID(ids []BlockID, target BlockID) []BlockID {
	out := ids[:0]
	for _, id := range ids {
		if id != target {
			out = append(out, id)
		}
	}
	return out
}

// FindByType returns, in pre-order, every block whose role equals role.
// The result is empty, not nil, when nothing matches.
func (d *Document) FindByType(role string) []BlockID {
	ids := []BlockID{}
	d.Walk(func(b *Block) bool {
		if b.Role == role {
			ids = append(ids, b.ID)
		}
		return true
	})
	return ids
}

// Walk visits the blocks reachable from the root in pre-order. Returning
// false from fn skips the block's children. Blocks are passed by pointer to
// the live arena and must not be modified.
func (d *Document) Walk(fn func(b *Block) bool) {
	d.walkFrom(d.rootID, fn)
}

func (d *Document) walkFrom(start BlockID, fn func(b *Block) bool) {
	seen := make(map[BlockID]bool)
	var visit func(id BlockID)
	visit = func(id BlockID) {
		if seen[id] {
			return
		}
		b, ok := d.blocks[id]
		if !ok {
			return
		}
		seen[id] = true
		if !fn(b) {
			return
		}
		for _, child := range b.Children {
			visit(child)
		}
	}
	visit(start)
}

// Equal reports whether two documents have the same ids, title, roles,
// content and child order.
func (d *Document) Equal(other *Document) bool {
	if other == nil {
		return false
	}
	if d.id != other.id || d.title != other.title || d.rootID != other.rootID {
		return false
	}
	if len(d.blocks) != len(other.blocks) {
		return false
	}
	for id, a := range d.blocks {
		b, ok := other.blocks[id]
		if !ok || a.Role != b.Role || !contentEqual(a.Content, b.Content) {
			return false
		}
		if len(a.Children) != len(b.Children) {
			return false
		}
		for i := range a.Children {
			if a.Children[i] != b.Children[i] {
				return false
			}
		}
	}
	return true
}
