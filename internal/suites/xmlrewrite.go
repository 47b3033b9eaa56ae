package suites

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrParse = errors.New("failed to parse test configuration")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

const xmlDeclaration = `<?xml version="1.0" encoding="utf-8"?>`

// document is a parsed XML file kept as a flat token stream so it can be
// written back with everything but the edited attributes unchanged.
type document struct {
	bom    bool
	tokens []xml.Token
}

// element is what an attribute edit sees of one start tag.
type element struct {
	start *xml.StartElement
	// ancestors excludes the element itself; ancestors[0] is the root.
	ancestors []*xml.StartElement
}

func (e *element) depth() int {
	return len(e.ancestors)
}

func (e *element) attr(name string) (string, bool) {
	for _, a := range e.start.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}

// setAttr replaces an attribute in place or appends it. It reports whether
// the value changed.
func (e *element) setAttr(name, value string) bool {
	for i, a := range e.start.Attr {
		if a.Name.Space == "" && a.Name.Local == name {
			if a.Value == value {
				return false
			}
			e.start.Attr[i].Value = value
			return true
		}
	}
	e.start.Attr = append(e.start.Attr, xml.Attr{Name: xml.Name{Local: name}, Value: value})
	return true
}

func parseDocument(data []byte) (*document, error) {
	doc := &document{}
	if bytes.HasPrefix(data, utf8BOM) {
		doc.bom = true
		data = data[len(utf8BOM):]
	}

	d := xml.NewDecoder(bytes.NewReader(data))
	d.CharsetReader = charsetReader

	var (
		open  []xml.Name
		roots int
	)
	for {
		tok, err := d.RawToken()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrParse, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if len(open) == 0 {
				roots++
			}
			open = append(open, t.Name)
		case xml.EndElement:
			if len(open) == 0 || open[len(open)-1] != t.Name {
				line, _ := d.InputPos()
				return nil, fmt.Errorf("%w: unexpected </%s> on line %d", ErrParse, qname(t.Name), line)
			}
			open = open[:len(open)-1]
		case xml.CharData:
			if len(open) == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, fmt.Errorf("%w: text outside the root element", ErrParse)
			}
		}

		doc.tokens = append(doc.tokens, xml.CopyToken(tok))
	}

	if len(open) > 0 {
		return nil, fmt.Errorf("%w: unclosed <%s>", ErrParse, qname(open[len(open)-1]))
	}
	if roots != 1 {
		return nil, fmt.Errorf("%w: expected exactly one root element, found %d", ErrParse, roots)
	}

	return doc, nil
}

// edit calls fn for every start tag in document order.
func (doc *document) edit(fn func(e *element)) {
	var stack []*xml.StartElement
	for i, tok := range doc.tokens {
		switch t := tok.(type) {
		case xml.StartElement:
			start := &t
			fn(&element{start: start, ancestors: stack})
			doc.tokens[i] = *start
			stack = append(stack, start)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		}
	}
}

func (doc *document) hasDeclaration() bool {
	for _, tok := range doc.tokens {
		switch t := tok.(type) {
		case xml.ProcInst:
			if t.Target == "xml" {
				return true
			}
		case xml.CharData:
			continue
		default:
			return false
		}
	}
	return false
}

func (doc *document) bytes(withDeclaration bool) []byte {
	var buf bytes.Buffer
	if doc.bom {
		buf.Write(utf8BOM)
	}
	if withDeclaration && !doc.hasDeclaration() {
		buf.WriteString(xmlDeclaration)
		buf.WriteByte('\n')
	}

	for i := 0; i < len(doc.tokens); i++ {
		switch t := doc.tokens[i].(type) {
		case xml.StartElement:
			buf.WriteByte('<')
			buf.WriteString(qname(t.Name))
			for _, a := range t.Attr {
				buf.WriteByte(' ')
				buf.WriteString(qname(a.Name))
				buf.WriteString(`="`)
				buf.WriteString(attrEscaper.Replace(a.Value))
				buf.WriteByte('"')
			}
			if i+1 < len(doc.tokens) {
				if end, ok := doc.tokens[i+1].(xml.EndElement); ok && end.Name == t.Name {
					buf.WriteString("/>")
					i++
					continue
				}
			}
			buf.WriteByte('>')
		case xml.EndElement:
			buf.WriteString("</")
			buf.WriteString(qname(t.Name))
			buf.WriteByte('>')
		case xml.CharData:
			buf.WriteString(textEscaper.Replace(string(t)))
		case xml.Comment:
			buf.WriteString("<!--")
			buf.Write(t)
			buf.WriteString("-->")
		case xml.ProcInst:
			buf.WriteString("<?")
			buf.WriteString(t.Target)
			if len(t.Inst) > 0 {
				buf.WriteByte(' ')
				buf.Write(t.Inst)
			}
			buf.WriteString("?>")
		case xml.Directive:
			buf.WriteString("<!")
			buf.Write(t)
			buf.WriteByte('>')
		}
	}

	return buf.Bytes()
}

func qname(n xml.Name) string {
	if n.Space == "" {
		return n.Local
	}
	return n.Space + ":" + n.Local
}

var (
	textEscaper = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")

	attrEscaper = strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"\n", "&#10;",
		"\r", "&#13;",
		"\t", "&#9;",
	)
)

// charsetReader accepts ASCII declarations, which are a subset of UTF-8.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(charset) {
	case "us-ascii", "ascii":
		return input, nil
	}
	return nil, fmt.Errorf("unsupported encoding %q", charset)
}
