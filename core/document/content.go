package document

import (
	"encoding/json"
	"fmt"
)

// ContentKind names the variant carried by a Content value.
type ContentKind string

// Known content kinds.
const (
	KindText ContentKind = "text"
	KindCode ContentKind = "code"
)

// validContentKinds is the set of kinds this package understands.
var validContentKinds = map[ContentKind]bool{
	KindText: true,
	KindCode: true,
}

// IsKnown returns true if the kind is one of the built-in variants.
func (k ContentKind) IsKnown() bool {
	return validContentKinds[k]
}

// Content is the typed payload of a Block. The set of implementations is
// closed to this package: Text, Code and Opaque.
type Content interface {
	Kind() ContentKind
	isContent()
}

// Text is plain text content.
type Text struct {
	Body string
}

// Kind returns KindText.
func (Text) Kind() ContentKind { return KindText }
func (Text) isContent()        {}

// Code is source code tagged with a language.
type Code struct {
	Language string
	Body     string
}

// Kind returns KindCode.
func (Code) Kind() ContentKind { return KindCode }
func (Code) isContent()        {}

// Opaque carries a content kind this package does not understand. Its fields
// are kept verbatim so that a JSON round-trip preserves them.
type Opaque struct {
	Type   ContentKind
	Fields map[string]json.RawMessage
}

// Kind returns the original kind tag.
func (o Opaque) Kind() ContentKind { return o.Type }
func (Opaque) isContent()          {}

// checkContent rejects content that ToJSON and FromJSON cannot carry
// unchanged: opaque values must use an unknown, non-empty kind, must not
// shadow the "kind" tag and must hold valid JSON fields.
func checkContent(c Content) error {
	o, ok := c.(Opaque)
	if !ok {
		return nil
	}
	if o.Type == "" {
		return fmt.Errorf("opaque content kind is required")
	}
	if o.Type.IsKnown() {
		return fmt.Errorf("opaque content cannot use built-in kind %q", o.Type)
	}
	for name, raw := range o.Fields {
		if name == "kind" {
			return fmt.Errorf("opaque content field %q is reserved", name)
		}
		if !json.Valid(raw) {
			return fmt.Errorf("opaque content field %q is not valid JSON", name)
		}
	}
	return nil
}

// NewText returns Text content.
func NewText(body string) Content {
	return Text{Body: body}
}

// NewCode returns Code content.
func NewCode(language, body string) Content {
	return Code{Language: language, Body: body}
}

// TextOf returns the textual body of c. Opaque content has no body.
func TextOf(c Content) (string, bool) {
	switch v := c.(type) {
	case Text:
		return v.Body, true
	case Code:
		return v.Body, true
	default:
		return "", false
	}
}

// cloneContent returns a copy of c that shares no mutable state.
func cloneContent(c Content) Content {
	o, ok := c.(Opaque)
	if !ok {
		return c
	}
	fields := make(map[string]json.RawMessage, len(o.Fields))
	for k, v := range o.Fields {
		fields[k] = append(json.RawMessage(nil), v...)
	}
	return Opaque{Type: o.Type, Fields: fields}
}

// contentEqual reports whether two content values are identical.
func contentEqual(a, b Content) bool {
	switch av := a.(type) {
	case Text:
		bv, ok := b.(Text)
		return ok && av == bv
	case Code:
		bv, ok := b.(Code)
		return ok && av == bv
	case Opaque:
		bv, ok := b.(Opaque)
		if !ok || av.Type != bv.Type || len(av.Fields) != len(bv.Fields) {
			return false
		}
		for k, v := range av.Fields {
			if string(bv.Fields[k]) != string(v) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
