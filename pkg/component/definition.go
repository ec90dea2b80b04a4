package component

import (
	stderrors "errors"

	"gopkg.in/yaml.v3"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/expr"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

// Definition is a component declared in a YAML or JSON file.
type Definition struct {
	// Data is the initial state of every instance.
	Data map[string]any `yaml:"data"`

	// Methods are installed on the instance as callable functions.
	Methods map[string]*Method `yaml:"methods"`

	// Mounted and Unmounted are handler statements run around the
	// instance's lifetime.
	Mounted   string `yaml:"mounted"`
	Unmounted string `yaml:"unmounted"`

	path      string
	mounted   *expr.Handler
	unmounted *expr.Handler
}

// Method is a named handler with optional parameters. In a definition it is
// written either as a bare statement string or as a mapping with params
// and body.
type Method struct {
	Params []string `yaml:"params"`
	Body   string   `yaml:"body"`

	handler *expr.Handler
}

// UnmarshalYAML accepts the scalar shorthand.
func (m *Method) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		m.Body = node.Value
		return nil
	}
	type plain Method
	return node.Decode((*plain)(m))
}

// ParseDefinition decodes a definition and compiles its methods and hooks.
// path is used in error messages only.
func ParseDefinition(src []byte, path string) (*Definition, error) {
	d := &Definition{path: path}
	if err := yaml.Unmarshal(src, d); err != nil {
		return nil, gerrors.New("G023").Withf("%s", path).Wrap(err)
	}
	for name, m := range d.Methods {
		if m == nil || m.Body == "" {
			return nil, gerrors.New("G023").Withf("%s: method %s has no body", path, name)
		}
		h, err := compileHook(path, m.Body)
		if err != nil {
			return nil, err
		}
		m.handler = h
	}
	var err error
	if d.mounted, err = compileHook(path, d.Mounted); err != nil {
		return nil, err
	}
	if d.unmounted, err = compileHook(path, d.Unmounted); err != nil {
		return nil, err
	}
	return d, nil
}

func compileHook(path, body string) (*expr.Handler, error) {
	if body == "" {
		return nil, nil
	}
	h, err := expr.CompileHandler(body)
	if err != nil {
		ge := gerrors.New("G023").Withf("%s", path).Wrap(err)
		var se *expr.SyntaxError
		if stderrors.As(err, &se) {
			ge.WithSource(body, se.Pos)
		}
		return nil, ge
	}
	return h, nil
}

// Path returns the path the definition was read from.
func (d *Definition) Path() string {
	return d.path
}

// New implements Factory. The instance is a *reactive.Record holding the
// definition's data with a map model merged over it. The model itself is
// available as $model.
func (d *Definition) New(rt *reactive.Runtime, model any) (any, error) {
	fields := make(map[string]any, len(d.Data)+len(d.Methods)+3)
	for k, v := range d.Data {
		fields[k] = v
	}
	if m, ok := model.(map[string]any); ok {
		for k, v := range m {
			fields[k] = v
		}
	}
	if model != nil {
		fields["$model"] = model
	}
	self := rt.NewRecord(fields)

	for name, m := range d.Methods {
		self.Set(name, m.bind(self))
	}
	if d.mounted != nil {
		self.Set("$mounted", hook(d.mounted, self))
	}
	if d.unmounted != nil {
		self.Set("$unmounted", hook(d.unmounted, self))
	}
	return self, nil
}

func (m *Method) bind(self *reactive.Record) expr.Func {
	return func(args ...any) (any, error) {
		locals := map[string]any{"$args": args}
		for i, p := range m.Params {
			var v any
			if i < len(args) {
				v = args[i]
			}
			locals[p] = v
		}
		return nil, m.handler.Call(&expr.Env{Data: self, Locals: locals})
	}
}

func hook(h *expr.Handler, self *reactive.Record) expr.Func {
	return func(...any) (any, error) {
		return nil, h.Call(&expr.Env{Data: self})
	}
}
