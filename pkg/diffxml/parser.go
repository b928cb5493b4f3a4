// Package diffxml parses and serializes the whole-file-replace XML format
// exchanged with AI agents.
//
// Two document shapes are accepted:
//
//	<root>
//	  <file name="relative/path.ext"><replace>NEW CONTENT</replace></file>
//	</root>
//
// and the same <file> elements concatenated at the top level without a
// wrapper. Validation is whole-document: any failure rejects the batch.
package diffxml

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/drengskapur/repodiff/pkg/pathguard"
)

// element is a minimal DOM node. parts interleaves character data and
// child elements in document order.
type element struct {
	name     string
	attrs    []xml.Attr
	parts    []part
	children []*element
}

type part struct {
	text  string
	child *element
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.attrs {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

func (e *element) childrenNamed(name string) []*element {
	var out []*element
	for _, c := range e.children {
		if c.name == name {
			out = append(out, c)
		}
	}
	return out
}

// textContent concatenates all descendant character data.
func (e *element) textContent() string {
	var b strings.Builder
	var walk func(*element)
	walk = func(n *element) {
		for _, p := range n.parts {
			if p.child != nil {
				walk(p.child)
				continue
			}
			b.WriteString(p.text)
		}
	}
	walk(e)
	return b.String()
}

// Parse validates xmlText and returns its ChangeSet. Blank input yields an
// empty ChangeSet. On any error no ChangeSet is returned.
func Parse(xmlText string) (ChangeSet, error) {
	if strings.TrimSpace(xmlText) == "" {
		return ChangeSet{}, nil
	}

	top, err := decode(xmlText)
	if err != nil {
		return nil, err
	}

	files, err := fileElements(top)
	if err != nil {
		return nil, err
	}

	changes := make(ChangeSet, 0, len(files))
	seen := make(map[string]struct{}, len(files))

	for i, f := range files {
		name, ok := f.attr(NameAttribute)
		if !ok || name == "" {
			return nil, &Error{Kind: KindMissingName, Index: i}
		}
		if _, dup := seen[name]; dup {
			return nil, &Error{Kind: KindDuplicateFile, Index: i, Name: name}
		}
		seen[name] = struct{}{}

		replaces := f.childrenNamed(ReplaceElement)
		switch len(replaces) {
		case 0:
			return nil, &Error{Kind: KindMissingReplace, Index: i, Name: name}
		case 1:
		default:
			return nil, &Error{Kind: KindMultipleReplace, Index: i, Name: name}
		}

		if err := pathguard.CheckRelative(name); err != nil {
			return nil, &Error{Kind: KindPathTraversal, Index: i, Name: name, Err: err}
		}

		changes = append(changes, FileChange{
			FileName:   name,
			NewContent: replaces[0].textContent(),
		})
	}

	return changes, nil
}

// decode tokenizes the document and returns its top-level elements.
// encoding/xml accepts a stream of sibling roots, which is what lets the
// unwrapped shape parse without a synthetic wrapper.
func decode(xmlText string) ([]*element, error) {
	dec := xml.NewDecoder(strings.NewReader(strings.TrimPrefix(xmlText, "\ufeff")))
	dec.Strict = true

	var (
		top   []*element
		stack []*element
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &Error{Kind: KindInvalidXML, Index: -1, Err: err}
		}

		switch t := tok.(type) {
		case xml.StartElement:
			el := &element{name: t.Name.Local, attrs: t.Attr}
			if n := len(stack); n > 0 {
				parent := stack[n-1]
				parent.children = append(parent.children, el)
				parent.parts = append(parent.parts, part{child: el})
			} else {
				top = append(top, el)
			}
			stack = append(stack, el)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if n := len(stack); n > 0 {
				stack[n-1].parts = append(stack[n-1].parts, part{text: string(t)})
				continue
			}
			if strings.TrimSpace(string(t)) != "" {
				return nil, &Error{Kind: KindInvalidXML, Index: -1, Err: fmt.Errorf("text outside of any element")}
			}
		}
	}

	return top, nil
}

// fileElements applies the shape rules: either every top-level element is
// a <file>, or a single wrapper element holds the <file> children.
func fileElements(top []*element) ([]*element, error) {
	if len(top) == 0 {
		return nil, &Error{Kind: KindNoFileElements, Index: -1}
	}

	allFiles := true
	for _, el := range top {
		if el.name != FileElement {
			allFiles = false
			break
		}
	}
	if allFiles {
		return top, nil
	}

	if len(top) > 1 {
		for _, el := range top {
			if el.name != FileElement {
				return nil, &Error{
					Kind:  KindInvalidXML,
					Index: -1,
					Err:   fmt.Errorf("unexpected top-level element <%s>", el.name),
				}
			}
		}
	}

	files := top[0].childrenNamed(FileElement)
	if len(files) == 0 {
		return nil, &Error{Kind: KindNoFileElements, Index: -1}
	}
	return files, nil
}
