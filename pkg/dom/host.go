package dom

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/net/html"
)

// Event is dispatched to listeners.
type Event struct {
	Type string
	// Target is the node the event was dispatched on.
	Target *html.Node
	// CurrentTarget is the node whose listener is running.
	CurrentTarget *html.Node
	// Detail carries event specific data.
	Detail any

	stopped bool
}

// StopPropagation prevents the event from reaching ancestors.
func (e *Event) StopPropagation() {
	e.stopped = true
}

// Stopped reports whether StopPropagation was called.
func (e *Event) Stopped() bool {
	return e.stopped
}

// Listener handles an event.
type Listener func(*Event) error

type listenerEntry struct {
	fn      Listener
	removed bool
}

// Host stores DOM properties and event listeners for nodes.
// A Host is confined to the goroutine running the bindings.
type Host struct {
	props     map[*html.Node]map[string]any
	listeners map[*html.Node]map[string][]*listenerEntry
	logger    *slog.Logger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the logger used for listener failures.
func WithHostLogger(logger *slog.Logger) HostOption {
	return func(h *Host) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewHost creates an empty Host.
func NewHost(opts ...HostOption) *Host {
	h := &Host{
		props:     make(map[*html.Node]map[string]any),
		listeners: make(map[*html.Node]map[string][]*listenerEntry),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// SetProperty assigns a property. Reflected properties also update the
// tree; everything else lives only in the side table.
func (h *Host) SetProperty(n *html.Node, name string, value any) {
	key := strings.ToLower(name)
	m := h.props[n]
	if m == nil {
		m = make(map[string]any)
		h.props[n] = m
	}
	m[key] = value
	reflectProperty(n, key, value)
}

// Property returns a property value.
func (h *Host) Property(n *html.Node, name string) (any, bool) {
	v, ok := h.props[n][strings.ToLower(name)]
	return v, ok
}

// DeleteProperty removes a property from the side table. The tree keeps
// whatever a reflected property last wrote.
func (h *Host) DeleteProperty(n *html.Node, name string) {
	m := h.props[n]
	if m == nil {
		return
	}
	delete(m, strings.ToLower(name))
	if len(m) == 0 {
		delete(h.props, n)
	}
}

// PropertyCount returns the number of properties held for all nodes.
func (h *Host) PropertyCount() int {
	total := 0
	for _, m := range h.props {
		total += len(m)
	}
	return total
}

func reflectProperty(n *html.Node, key string, value any) {
	switch key {
	case "textcontent", "innertext":
		SetTextContent(n, stringify(value))
	case "classname":
		SetAttr(n, "class", stringify(value))
	case "id", "value":
		if n.Type == html.ElementNode {
			SetAttr(n, key, stringify(value))
		}
	case "checked", "disabled", "hidden":
		if n.Type != html.ElementNode {
			return
		}
		if b, _ := value.(bool); b {
			SetAttr(n, key, "")
		} else {
			RemoveAttr(n, key)
		}
	}
}

func stringify(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case interface{ String() string }:
		return x.String()
	}
	return fmt.Sprint(v)
}

// AddListener registers fn for events of type typ on n and returns a
// function removing it. Removing twice is harmless.
func (h *Host) AddListener(n *html.Node, typ string, fn Listener) (remove func()) {
	byType := h.listeners[n]
	if byType == nil {
		byType = make(map[string][]*listenerEntry)
		h.listeners[n] = byType
	}
	e := &listenerEntry{fn: fn}
	byType[typ] = append(byType[typ], e)

	return func() {
		if e.removed {
			return
		}
		e.removed = true
		list := h.listeners[n][typ]
		for i, x := range list {
			if x == e {
				list = append(list[:i:i], list[i+1:]...)
				break
			}
		}
		if len(list) == 0 {
			delete(h.listeners[n], typ)
			if len(h.listeners[n]) == 0 {
				delete(h.listeners, n)
			}
			return
		}
		h.listeners[n][typ] = list
	}
}

// Listeners returns how many listeners of type typ are registered on n.
func (h *Host) Listeners(n *html.Node, typ string) int {
	return len(h.listeners[n][typ])
}

// ListenerCount returns the total number of registered listeners.
func (h *Host) ListenerCount() int {
	total := 0
	for _, byType := range h.listeners {
		for _, list := range byType {
			total += len(list)
		}
	}
	return total
}

// Dispatch delivers ev to target and then to each ancestor until a
// listener stops propagation. Listener errors are collected; a failing
// listener does not prevent the others from running.
func (h *Host) Dispatch(target *html.Node, ev *Event) error {
	ev.Target = target
	var result *multierror.Error
	for n := target; n != nil && !ev.stopped; n = n.Parent {
		list := h.listeners[n][ev.Type]
		if len(list) == 0 {
			continue
		}
		snapshot := make([]*listenerEntry, len(list))
		copy(snapshot, list)

		ev.CurrentTarget = n
		for _, e := range snapshot {
			if e.removed {
				continue
			}
			if err := e.fn(ev); err != nil {
				h.logger.Warn("event listener failed", "event", ev.Type, "error", err)
				result = multierror.Append(result, err)
			}
		}
	}
	ev.CurrentTarget = nil
	return result.ErrorOrNil()
}

