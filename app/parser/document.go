package parser

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// Documents are checked for cancellation every cancelCheckInterval tokens.
const cancelCheckInterval = 512

// Document is a parsed XML tree with namespace-resolved element and attribute names.
type Document struct {
	Root *Element
}

type Element struct {
	Name     xml.Name
	Attr     []xml.Attr
	Children []*Element
	nodes    []node
}

// node is either a child element or a run of character data, in document order.
type node struct {
	elem *Element
	text string
}

// ReadDocument parses an XML byte stream, honouring the encoding named in
// its XML declaration.
func ReadDocument(ctx context.Context, r io.Reader) (*Document, error) {
	return readDocument(ctx, r, charset.NewReaderLabel)
}

// ParseDocumentString parses already-decoded XML text. Any encoding named in
// the XML declaration is ignored because the text is no longer in that encoding.
func ParseDocumentString(ctx context.Context, s string) (*Document, error) {
	return readDocument(ctx, strings.NewReader(s), func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	})
}

func readDocument(ctx context.Context, r io.Reader, charsetReader func(string, io.Reader) (io.Reader, error)) (*Document, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charsetReader

	var root *Element
	var stack []*Element

	for count := 0; ; count++ {
		if count%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read XML: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			elem := &Element{Name: t.Name, Attr: append([]xml.Attr(nil), t.Attr...)}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("multiple root elements")
				}
				root = elem
			} else {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, elem)
				parent.nodes = append(parent.nodes, node{elem: elem})
			}
			stack = append(stack, elem)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.nodes = append(parent.nodes, node{text: string(t)})
			}
		}
	}

	if root == nil {
		return nil, fmt.Errorf("document has no root element")
	}

	return &Document{Root: root}, nil
}

// Value returns the concatenated character data of the element and all of its descendants.
func (e *Element) Value() string {
	var b strings.Builder
	e.writeValue(&b)
	return b.String()
}

func (e *Element) writeValue(b *strings.Builder) {
	for _, n := range e.nodes {
		if n.elem != nil {
			n.elem.writeValue(b)
		} else {
			b.WriteString(n.text)
		}
	}
}

// String serializes the element and its content back to markup.
func (e *Element) String() string {
	var b strings.Builder
	e.writeMarkup(&b, "")
	return b.String()
}

func (e *Element) writeMarkup(b *strings.Builder, parentSpace string) {
	b.WriteByte('<')
	b.WriteString(e.Name.Local)
	if e.Name.Space != "" && e.Name.Space != parentSpace {
		writeAttr(b, "xmlns", e.Name.Space)
	}
	for _, a := range e.Attr {
		switch {
		case a.Name.Space == "xmlns", a.Name.Space == "" && a.Name.Local == "xmlns":
			continue
		case a.Name.Space == NamespaceXML:
			writeAttr(b, "xml:"+a.Name.Local, a.Value)
		default:
			writeAttr(b, a.Name.Local, a.Value)
		}
	}

	if len(e.nodes) == 0 {
		b.WriteString("/>")
		return
	}

	b.WriteByte('>')
	for _, n := range e.nodes {
		if n.elem != nil {
			n.elem.writeMarkup(b, e.Name.Space)
		} else {
			xml.EscapeText(b, []byte(n.text))
		}
	}
	b.WriteString("</")
	b.WriteString(e.Name.Local)
	b.WriteByte('>')
}

func writeAttr(b *strings.Builder, name, value string) {
	b.WriteByte(' ')
	b.WriteString(name)
	b.WriteString(`="`)
	xml.EscapeText(b, []byte(value))
	b.WriteByte('"')
}

// Attribute returns the value of the un-namespaced attribute with the given local name.
func (e *Element) Attribute(local string) *string {
	return e.AttributeNS("", local)
}

func (e *Element) AttributeNS(space, local string) *string {
	if e == nil {
		return nil
	}
	for _, a := range e.Attr {
		if a.Name.Space == space && a.Name.Local == local {
			v := a.Value
			return &v
		}
	}
	return nil
}

// DefaultNamespace returns the default namespace declared on the element itself.
func (e *Element) DefaultNamespace() string {
	for _, a := range e.Attr {
		if a.Name.Space == "" && a.Name.Local == "xmlns" {
			return a.Value
		}
	}
	return ""
}

// Child returns the first child element with the exact namespace and local name.
func (e *Element) Child(space, local string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if c.Name.Space == space && c.Name.Local == local {
			return c
		}
	}
	return nil
}

func (e *Element) ChildrenNamed(space, local string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if c.Name.Space == space && c.Name.Local == local {
			out = append(out, c)
		}
	}
	return out
}

// ChildFold returns the first child whose local name matches case-insensitively,
// in any namespace.
func (e *Element) ChildFold(local string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if strings.EqualFold(c.Name.Local, local) {
			return c
		}
	}
	return nil
}

func (e *Element) ChildrenFold(local string) []*Element {
	if e == nil {
		return nil
	}
	var out []*Element
	for _, c := range e.Children {
		if strings.EqualFold(c.Name.Local, local) {
			out = append(out, c)
		}
	}
	return out
}

// DescendantFold returns the first descendant, in document order, whose local
// name matches case-insensitively.
func (e *Element) DescendantFold(local string) *Element {
	if e == nil {
		return nil
	}
	for _, c := range e.Children {
		if strings.EqualFold(c.Name.Local, local) {
			return c
		}
		if d := c.DescendantFold(local); d != nil {
			return d
		}
	}
	return nil
}

// HasChildInNamespace reports whether any direct child element is in the namespace.
func (e *Element) HasChildInNamespace(space string) bool {
	if e == nil {
		return false
	}
	for _, c := range e.Children {
		if c.Name.Space == space {
			return true
		}
	}
	return false
}
