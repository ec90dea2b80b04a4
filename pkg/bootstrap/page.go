package bootstrap

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/gallia-dev/gallia/pkg/dom"
)

// RenderPage parses the document read from r, mounts its root components
// and writes the bound document to w. The document is written even when
// some roots fail; their errors are returned.
func RenderPage(ctx context.Context, w io.Writer, r io.Reader, opts ...Option) error {
	doc, err := dom.Parse(r)
	if err != nil {
		return fmt.Errorf("bootstrap: parse page: %w", err)
	}
	mountErr := New(opts...).Mount(ctx, doc)
	if err := dom.Render(w, doc); err != nil {
		return fmt.Errorf("bootstrap: render page: %w", err)
	}
	return mountErr
}

// RenderString is RenderPage for a page held in a string.
func RenderString(ctx context.Context, src string, opts ...Option) (string, error) {
	var buf bytes.Buffer
	err := RenderPage(ctx, &buf, bytes.NewBufferString(src), opts...)
	return buf.String(), err
}
