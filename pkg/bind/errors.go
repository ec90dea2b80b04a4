package bind

import (
	"errors"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/expr"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// compileError wraps an expression compilation failure of the directive
// named attr, keeping the position of syntax errors.
func compileError(code, attr, src string, err error) error {
	ge := gerrors.New(code).Withf("%s", attr).Wrap(err)
	var se *expr.SyntaxError
	if errors.As(err, &se) {
		ge.WithSource(src, se.Pos)
	} else {
		ge.WithSource(src, -1)
	}
	return ge
}

// bindError wraps a failure to open a binding.
func bindError(attr, src string, err error) error {
	if errors.Is(err, reactive.ErrUseAfterDestroy) {
		return gerrors.New("G011").Withf("%s", attr).Wrap(err)
	}
	var ge *gerrors.GalliaError
	if errors.As(err, &ge) {
		return err
	}
	return gerrors.New("G010").Withf("%s", attr).WithSource(src, -1).Wrap(err)
}

var errNoParent = errors.New("block template has no parent node")
