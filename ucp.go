// Package ucp is the entry point to the document engine: documents made of
// blocks, and UCL, the command language that edits them.
//
// A short session:
//
//	doc := ucp.CreateDocument("Notes")
//	id, _ := doc.AddBlock(doc.RootID(), "Hello", "intro")
//	_, err := ucp.ExecuteUCL(doc, `EDIT `+id.String()+` SET content.text = "Hello, UCP!"`)
package ucp

import (
	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/ucl"
)

// Version metadata.
const (
	Name   = "ucp"
	SemVer = "0.1.0"
)

// Version returns "<name> <major>.<minor>.<patch>".
func Version() string {
	return Name + " " + SemVer
}

// CreateDocument returns a new document holding only its root block.
func CreateDocument(title string) *document.Document {
	return document.New(title)
}

// ExecuteUCL runs one UCL command against d and returns the affected block
// ids. On error d is unchanged.
func ExecuteUCL(d *document.Document, command string) ([]document.BlockID, error) {
	return ucl.Execute(d, command)
}
