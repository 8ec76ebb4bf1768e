package nasc

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
)

var errUnbound = errors.New("deferred accessor is not bound to a registration")

// Lazy defers the construction of a T until Value is first called. It is
// synthesized for any registered T; the result, or the error, of the first
// construction is kept for later calls.
//
// Example:
//
//	type Handler struct {
//	    db nasc.Lazy[Database]
//	}
//
//	func (h *Handler) Serve() error {
//	    db, err := h.db.Value()
//	    ...
//	}
type Lazy[T any] struct {
	cell *lazyCell
}

// Value constructs the instance on the first call and returns it.
func (l Lazy[T]) Value() (T, error) {
	return cellValue[T](l.cell)
}

// MustValue is Value panicking on error.
func (l Lazy[T]) MustValue() T {
	value, err := l.Value()
	if err != nil {
		panic(err.Error())
	}
	return value
}

// IsValueCreated reports whether Value has already run.
func (l Lazy[T]) IsValueCreated() bool {
	return l.cell != nil && l.cell.created.Load()
}

func (Lazy[T]) lazyElem() reflect.Type {
	return reflect.TypeFor[T]()
}

func (Lazy[T]) bindLazy(cell *lazyCell) any {
	return Lazy[T]{cell: cell}
}

// Meta is a deferred accessor for T paired with the metadata of the
// registration behind it. Reading Metadata never constructs the instance.
//
// M is either map[string]any or a struct. Struct fields are filled from the
// metadata key equal to the field name, or to the key named by a `meta` tag.
//
// Example:
//
//	type PluginInfo struct {
//	    Name  string `meta:"name"`
//	    Order int    `meta:"order"`
//	}
//
//	plugins, _ := nasc.Resolve[[]nasc.Meta[Plugin, PluginInfo]](scope)
//	for _, p := range plugins {
//	    fmt.Println(p.Metadata().Name)
//	}
type Meta[T, M any] struct {
	cell     *lazyCell
	metadata M
}

// Value constructs the instance on the first call and returns it.
func (m Meta[T, M]) Value() (T, error) {
	return cellValue[T](m.cell)
}

// MustValue is Value panicking on error.
func (m Meta[T, M]) MustValue() T {
	value, err := m.Value()
	if err != nil {
		panic(err.Error())
	}
	return value
}

// IsValueCreated reports whether Value has already run.
func (m Meta[T, M]) IsValueCreated() bool {
	return m.cell != nil && m.cell.created.Load()
}

// Metadata returns the metadata of the underlying registration.
func (m Meta[T, M]) Metadata() M {
	return m.metadata
}

func (Meta[T, M]) metaTypes() (reflect.Type, reflect.Type) {
	return reflect.TypeFor[T](), reflect.TypeFor[M]()
}

func (Meta[T, M]) bindMeta(cell *lazyCell, metadata any) any {
	out := Meta[T, M]{cell: cell}
	if metadata != nil {
		out.metadata = metadata.(M)
	}
	return out
}

// Factory produces a T on every call, honouring the lifetime of the
// registration behind it. Any func() (T, error) type is synthesized the
// same way.
type Factory[T any] func() (T, error)

// lazyShape is implemented by every Lazy instantiation.
type lazyShape interface {
	lazyElem() reflect.Type
	bindLazy(cell *lazyCell) any
}

// metaShape is implemented by every Meta instantiation.
type metaShape interface {
	metaTypes() (reflect.Type, reflect.Type)
	bindMeta(cell *lazyCell, metadata any) any
}

var (
	lazyShapeType = reflect.TypeFor[lazyShape]()
	metaShapeType = reflect.TypeFor[metaShape]()
)

// lazyCell runs produce at most once and keeps its outcome.
type lazyCell struct {
	once    sync.Once
	created atomic.Bool
	produce func() (any, error)
	value   any
	err     error
}

func newLazyCell(produce func() (any, error)) *lazyCell {
	return &lazyCell{produce: produce}
}

func (c *lazyCell) get() (any, error) {
	c.once.Do(func() {
		c.value, c.err = c.produce()
		c.created.Store(true)
	})
	return c.value, c.err
}

func cellValue[T any](cell *lazyCell) (T, error) {
	var zero T
	if cell == nil {
		return zero, errUnbound
	}
	value, err := cell.get()
	if err != nil {
		return zero, err
	}
	if value == nil {
		return zero, nil
	}
	out, ok := value.(T)
	if !ok {
		return zero, fmt.Errorf("deferred value of type %T is not a %v", value, reflect.TypeFor[T]())
	}
	return out, nil
}
