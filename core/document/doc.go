// Package document provides the block-tree content model behind ucp.
//
// A Document owns a tree of Blocks rooted at a distinguished root block that
// exists from creation and can never be removed. Blocks are created only
// through Document mutation methods, never independently.
//
// # Core Types
//
//   - Document: owner of the block arena, id allocator and parent index
//   - Block: id, role, content and ordered child ids
//   - Content: closed set of payloads (Text, Code, Opaque)
//   - Issue: a diagnostic produced by Validate
//
// # Roles and Content Kinds
//
// A block's Role is a free-form classification used by FindByType. It is
// independent of the content kind: a Code block added with AddCode has an
// empty role, so FindByType("code") does not return it.
//
// # Serialization
//
// Snapshot and ToJSON export the tree with blocks listed in pre-order.
// FromJSON restores a document with the same ids, roles, content and child
// order.
//
// # Concurrency
//
// A Document performs no locking. Hosts that share a Document between
// goroutines must serialize access themselves.
//
// # Example
//
//	doc := document.New("Notes")
//	id, err := doc.AddBlock(doc.RootID(), "Hello, UCP!", "paragraph")
//	if err != nil {
//	    return err
//	}
//	data, err := doc.ToJSON()
package document
