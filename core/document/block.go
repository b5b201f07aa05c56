package document

// BlockID identifies a block within its document.
type BlockID string

// String returns the id as a plain string.
func (id BlockID) String() string {
	return string(id)
}

// RoleRoot is the role given to every document's root block.
const RoleRoot = "root"

// Block is a node in a document's content tree.
type Block struct {
	// ID is assigned by the owning document and never changes.
	ID BlockID

	// Role is a free-form classification used by FindByType.
	Role string

	// Content is the payload. It can be replaced in place.
	Content Content

	// Children lists child ids in insertion order.
	Children []BlockID

	root bool
}

// IsRoot returns true if this block is its document's root.
func (b *Block) IsRoot() bool {
	return b.root
}

// ContentType returns the kind of the block's content.
func (b *Block) ContentType() ContentKind {
	if b.Content == nil {
		return ""
	}
	return b.Content.Kind()
}

// Text returns the block's textual body, or "" for opaque content.
func (b *Block) Text() string {
	body, _ := TextOf(b.Content)
	return body
}

// clone returns a deep copy so callers cannot reach the document's arena.
func (b *Block) clone() *Block {
	c := &Block{
		ID:      b.ID,
		Role:    b.Role,
		Content: cloneContent(b.Content),
		root:    b.root,
	}
	if len(b.Children) > 0 {
		c.Children = append([]BlockID(nil), b.Children...)
	}
	return c
}
