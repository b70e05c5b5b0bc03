package footer

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// RendersAsHTML reports whether a CommonMark renderer would emit the marker
// container as a raw HTML block rather than as paragraph text.
func (e *Engine) RendersAsHTML(document string) bool {
	src := []byte(document)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	found := false
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		block, ok := n.(*ast.HTMLBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var b strings.Builder
		lines := block.Lines()
		for i := 0; i < lines.Len(); i++ {
			seg := lines.At(i)
			b.Write(seg.Value(src))
		}

		if e.Detect(b.String()) {
			found = true
			return ast.WalkStop, nil
		}
		return ast.WalkSkipChildren, nil
	})

	return found
}
