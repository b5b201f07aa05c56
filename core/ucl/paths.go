package ucl

import (
	"fmt"
	"sort"

	"github.com/FocuswithJustin/ucp/core/document"
)

// Addressable content fields.
const (
	PathText     = "content.text"
	PathLanguage = "content.language"
)

type fieldKey struct {
	kind document.ContentKind
	path string
}

// setter returns a copy of c with one field replaced.
type setter func(c document.Content, value string) document.Content

// fieldSetters is the complete set of paths EDIT can write. Anything not
// listed here is rejected before the document is touched.
var fieldSetters = map[fieldKey]setter{
	{document.KindText, PathText}: func(c document.Content, v string) document.Content {
		return document.NewText(v)
	},
	{document.KindCode, PathText}: func(c document.Content, v string) document.Content {
		code := c.(document.Code)
		code.Body = v
		return code
	},
	{document.KindCode, PathLanguage}: func(c document.Content, v string) document.Content {
		code := c.(document.Code)
		code.Language = v
		return code
	},
}

// resolveSetter finds the setter for path on content c.
func resolveSetter(c document.Content, path string) (setter, error) {
	switch c.(type) {
	case document.Text, document.Code:
	default:
		return nil, fmt.Errorf("content of kind %q has no editable fields", c.Kind())
	}
	set, ok := fieldSetters[fieldKey{c.Kind(), path}]
	if !ok {
		return nil, fmt.Errorf("path %q is not editable on %s content (editable: %v)", path, c.Kind(), EditablePaths(c.Kind()))
	}
	return set, nil
}

// EditablePaths lists the paths EDIT accepts for a content kind, sorted.
func EditablePaths(kind document.ContentKind) []string {
	var paths []string
	for k := range fieldSetters {
		if k.kind == kind {
			paths = append(paths, k.path)
		}
	}
	sort.Strings(paths)
	return paths
}
