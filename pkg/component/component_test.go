package component

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"testing/fstest"

	gerrors "github.com/gallia-dev/gallia/internal/errors"
	"github.com/gallia-dev/gallia/pkg/expr"
	"github.com/gallia-dev/gallia/pkg/reactive"
)

const counterYAML = `
data:
  count: 0
  items: [a, b]
methods:
  increment: count += 1
  add:
    params: [n]
    body: count += n
mounted: started = true
unmounted: started = false
`

func newCounter(t *testing.T, model any) *reactive.Record {
	t.Helper()
	def, err := ParseDefinition([]byte(counterYAML), "counter.yaml")
	if err != nil {
		t.Fatalf("ParseDefinition: %v", err)
	}
	inst, err := def.New(reactive.NewRuntime(), model)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	rec, ok := inst.(*reactive.Record)
	if !ok {
		t.Fatalf("instance = %T, want *reactive.Record", inst)
	}
	return rec
}

func callMethod(t *testing.T, rec *reactive.Record, name string, args ...any) {
	t.Helper()
	fn, ok := rec.Get(name).(expr.Func)
	if !ok {
		t.Fatalf("%s = %T, want expr.Func", name, rec.Get(name))
	}
	if _, err := fn(args...); err != nil {
		t.Fatalf("%s: %v", name, err)
	}
}

func TestDefinitionMethods(t *testing.T) {
	rec := newCounter(t, nil)

	callMethod(t, rec, "increment")
	callMethod(t, rec, "add", 4)
	if got := expr.ToNumber(rec.Get("count")); got != 5 {
		t.Errorf("count = %v, want 5", got)
	}

	h, err := expr.CompileHandler("add(10); increment()")
	if err != nil {
		t.Fatal(err)
	}
	if err := h.Bind(rec, nil)(nil); err != nil {
		t.Fatal(err)
	}
	if got := expr.ToNumber(rec.Get("count")); got != 16 {
		t.Errorf("count = %v, want 16", got)
	}
}

func TestDefinitionHooks(t *testing.T) {
	rec := newCounter(t, nil)

	callMethod(t, rec, "$mounted")
	if rec.Get("started") != true {
		t.Errorf("started = %v after mount, want true", rec.Get("started"))
	}
	callMethod(t, rec, "$unmounted")
	if rec.Get("started") != false {
		t.Errorf("started = %v after unmount, want false", rec.Get("started"))
	}
}

func TestDefinitionModel(t *testing.T) {
	model := map[string]any{"count": 41.0, "title": "clicks"}
	rec := newCounter(t, model)

	if got := expr.ToNumber(rec.Get("count")); got != 41 {
		t.Errorf("count = %v, want model value 41", got)
	}
	if rec.Get("title") != "clicks" {
		t.Errorf("title = %v, want clicks", rec.Get("title"))
	}
	if _, ok := rec.Get("$model").(*reactive.Record); !ok {
		t.Errorf("$model = %T, want wrapped model", rec.Get("$model"))
	}

	callMethod(t, rec, "increment")
	if got := expr.ToNumber(model["count"]); got != 41 {
		t.Errorf("model mutated: count = %v", got)
	}
}

func TestDefinitionInstancesAreIndependent(t *testing.T) {
	def, err := ParseDefinition([]byte(counterYAML), "counter.yaml")
	if err != nil {
		t.Fatal(err)
	}
	rt := reactive.NewRuntime()
	a, _ := def.New(rt, nil)
	b, _ := def.New(rt, nil)

	a.(*reactive.Record).Get("items").(*reactive.List).Append("c")
	if n := b.(*reactive.Record).Get("items").(*reactive.List).Len(); n != 2 {
		t.Errorf("second instance has %d items, want 2", n)
	}
	if n := len(def.Data["items"].([]any)); n != 2 {
		t.Errorf("definition data has %d items, want 2", n)
	}
}

func TestParseDefinitionJSON(t *testing.T) {
	src := `{"data": {"name": "ada"}, "methods": {"rename": {"params": ["n"], "body": "name = n"}}}`
	def, err := ParseDefinition([]byte(src), "user.json")
	if err != nil {
		t.Fatal(err)
	}
	inst, _ := def.New(reactive.NewRuntime(), nil)
	rec := inst.(*reactive.Record)
	callMethod(t, rec, "rename", "grace")
	if rec.Get("name") != "grace" {
		t.Errorf("name = %v, want grace", rec.Get("name"))
	}
}

func TestParseDefinitionErrors(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantSource bool
	}{
		{name: "bad yaml", src: "data: [1, 2"},
		{name: "method syntax", src: "methods:\n  inc: count +=", wantSource: true},
		{name: "hook syntax", src: "mounted: ready = (", wantSource: true},
		{name: "empty method", src: "methods:\n  inc:"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseDefinition([]byte(tt.src), "bad.yaml")
			if !gerrors.HasCode(err, "G023") {
				t.Fatalf("err = %v, want G023", err)
			}
			var ge *gerrors.GalliaError
			errors.As(err, &ge)
			if tt.wantSource && (ge.Source == "" || ge.Offset < 0) {
				t.Errorf("source = %q offset = %d, want positioned source", ge.Source, ge.Offset)
			}
		})
	}
}

func TestFileSource(t *testing.T) {
	src := &FileSource{FS: fstest.MapFS{
		"widgets/counter.yaml": {Data: []byte(counterYAML)},
		"user.json":            {Data: []byte(`{"data": {"name": "ada"}}`)},
		"broken.yml":           {Data: []byte("data: [")},
		"notes.txt":            {Data: []byte("ignored")},
	}}
	ctx := context.Background()

	tests := []struct {
		path     string
		wantErr  error
		wantCode string
	}{
		{path: "widgets/counter"},
		{path: "./widgets/counter"},
		{path: "/widgets/counter.yaml"},
		{path: "user"},
		{path: "missing", wantErr: ErrNotFound},
		{path: "../../notes", wantErr: ErrNotFound},
		{path: "broken", wantCode: "G023"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := src.Load(ctx, tt.path)
			switch {
			case tt.wantErr != nil:
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("err = %v, want %v", err, tt.wantErr)
				}
			case tt.wantCode != "":
				if !gerrors.HasCode(err, tt.wantCode) {
					t.Errorf("err = %v, want %s", err, tt.wantCode)
				}
			default:
				if err != nil || f == nil {
					t.Errorf("Load = %v, %v", f, err)
				}
			}
		})
	}

	paths, err := src.List()
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"broken", "user", "widgets/counter"}
	if len(paths) != len(want) {
		t.Fatalf("List = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("List[%d] = %q, want %q", i, paths[i], want[i])
		}
	}
}

func TestRegistryAndChain(t *testing.T) {
	reg := NewRegistry()
	reg.Register("counter", FactoryFunc(func(*reactive.Runtime, any) (any, error) {
		return map[string]any{"count": 0}, nil
	}))
	files := &FileSource{FS: fstest.MapFS{
		"counter.yaml": {Data: []byte(counterYAML)},
		"user.yaml":    {Data: []byte("data: {name: ada}")},
	}}
	failing := LoaderFunc(func(context.Context, string) (Factory, error) {
		return nil, errors.New("offline")
	})
	ctx := context.Background()

	f, err := Chain(reg, files).Load(ctx, "counter")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.(FactoryFunc); !ok {
		t.Errorf("counter = %T, want the registered factory", f)
	}

	f, err = Chain(reg, files).Load(ctx, "user")
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := f.(*Definition); !ok {
		t.Errorf("user = %T, want *Definition", f)
	}

	if _, err := Chain(reg, files).Load(ctx, "nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing err = %v, want ErrNotFound", err)
	}
	if _, err := Chain(reg, failing, files).Load(ctx, "user"); err == nil || err.Error() != "offline" {
		t.Errorf("err = %v, want offline to stop the chain", err)
	}

	if got := reg.Paths(); len(got) != 1 || got[0] != "counter" {
		t.Errorf("Paths = %v", got)
	}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		base, path, want string
	}{
		{"pages/index.html", "./counter", "pages/counter"},
		{"pages/index.html", "../shared/nav", "shared/nav"},
		{"pages/index.html", "counter", "counter"},
		{"", "./counter", "counter"},
		{"index.html", "./a/../b", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := Resolve(tt.base, tt.path); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
			}
		})
	}
}

type countingLoader struct {
	calls   atomic.Int32
	entered chan struct{}
	release chan struct{}
	fail    atomic.Bool
}

func (l *countingLoader) Load(context.Context, string) (Factory, error) {
	if l.calls.Add(1) == 1 && l.entered != nil {
		close(l.entered)
		<-l.release
	}
	if l.fail.Load() {
		return nil, errors.New("boom")
	}
	return FactoryFunc(func(*reactive.Runtime, any) (any, error) { return nil, nil }), nil
}

func TestCacheDeduplicatesConcurrentLoads(t *testing.T) {
	inner := &countingLoader{
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	cache := NewCache(inner)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := cache.Load(context.Background(), "counter"); err != nil {
				t.Error(err)
			}
		}()
	}
	<-inner.entered
	close(inner.release)
	wg.Wait()

	if n := inner.calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}

	cache.Invalidate("counter")
	if _, err := cache.Load(context.Background(), "counter"); err != nil {
		t.Fatal(err)
	}
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("loader called %d times after Invalidate, want 2", n)
	}

	cache.Reset()
	if cache.Len() != 0 {
		t.Errorf("Len = %d after Reset, want 0", cache.Len())
	}
}

func TestCacheResetDuringLoad(t *testing.T) {
	tests := []struct {
		name  string
		clear func(*Cache)
	}{
		{"reset", (*Cache).Reset},
		{"invalidate", func(c *Cache) { c.Invalidate("counter") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingLoader{
				entered: make(chan struct{}),
				release: make(chan struct{}),
			}
			cache := NewCache(inner)

			done := make(chan error, 1)
			go func() {
				_, err := cache.Load(context.Background(), "counter")
				done <- err
			}()
			<-inner.entered
			tt.clear(cache)
			close(inner.release)

			if err := <-done; err != nil {
				t.Fatalf("in-flight load: %v", err)
			}
			if cache.Len() != 0 {
				t.Errorf("Len = %d, a load begun before %s was stored", cache.Len(), tt.name)
			}
			if _, err := cache.Load(context.Background(), "counter"); err != nil {
				t.Fatal(err)
			}
			if n := inner.calls.Load(); n != 2 {
				t.Errorf("loader called %d times, want 2", n)
			}
		})
	}
}

func TestCacheCallerCancelDoesNotFailOthers(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	var calls atomic.Int32
	var loaderErr atomic.Value
	inner := LoaderFunc(func(ctx context.Context, _ string) (Factory, error) {
		if calls.Add(1) == 1 {
			close(entered)
			<-release
		}
		if err := ctx.Err(); err != nil {
			loaderErr.Store(err)
			return nil, err
		}
		return FactoryFunc(func(*reactive.Runtime, any) (any, error) { return nil, nil }), nil
	})
	cache := NewCache(inner)

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := cache.Load(ctx, "counter")
		first <- err
	}()
	<-entered

	second := make(chan error, 1)
	go func() {
		_, err := cache.Load(context.Background(), "counter")
		second <- err
	}()

	cancel()
	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller err = %v, want context.Canceled", err)
	}
	close(release)

	if err := <-second; err != nil {
		t.Errorf("second caller err = %v", err)
	}
	if err, _ := loaderErr.Load().(error); err != nil {
		t.Errorf("loader saw a cancelled context: %v", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("loader called %d times, want 1", n)
	}
	if cache.Len() != 1 {
		t.Errorf("Len = %d, want 1", cache.Len())
	}
}

func TestCacheDoesNotCacheFailures(t *testing.T) {
	inner := &countingLoader{}
	inner.fail.Store(true)
	cache := NewCache(inner)

	if _, err := cache.Load(context.Background(), "x"); err == nil {
		t.Fatal("expected error")
	}
	inner.fail.Store(false)
	if _, err := cache.Load(context.Background(), "x"); err != nil {
		t.Fatalf("second load: %v", err)
	}
	if n := inner.calls.Load(); n != 2 {
		t.Errorf("loader called %d times, want 2", n)
	}
}

func TestPreload(t *testing.T) {
	inner := &countingLoader{}
	cache := NewCache(inner)

	if err := Preload(context.Background(), cache, []string{"a", "b", "a"}); err != nil {
		t.Fatal(err)
	}
	if cache.Len() != 2 {
		t.Errorf("Len = %d, want 2", cache.Len())
	}

	inner.fail.Store(true)
	if err := Preload(context.Background(), cache, []string{"a", "c"}); err == nil {
		t.Error("expected the failing load to be reported")
	}
}
