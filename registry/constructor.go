package registry

import (
	"cmp"
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"slices"
	"strings"
)

var (
	errorInterface = reflect.TypeOf((*error)(nil)).Elem()
	anonymousFunc  = regexp.MustCompile(`\.func\d+`)
)

// Constructor describes one constructor function of an instance type.
// Supported signatures:
//   - func(Dep1, Dep2, ...) T
//   - func(Dep1, Dep2, ...) (T, error)
type Constructor struct {
	fn           reflect.Value
	params       []reflect.Type
	defaults     map[int]reflect.Value
	returnsError bool
	returnType   reflect.Type
	name         string
}

// ConstructorOption adjusts a parsed constructor.
type ConstructorOption func(*Constructor) error

// WithDefault declares the value used for parameter index when its type
// cannot be resolved.
func WithDefault(index int, value any) ConstructorOption {
	return func(c *Constructor) error {
		if index < 0 || index >= len(c.params) {
			return &InvalidConstructorError{
				Reason: fmt.Sprintf("default for parameter %d of %s: out of range", index, c.name),
			}
		}
		v, err := defaultValue(value, c.params[index])
		if err != nil {
			return &InvalidConstructorError{
				Reason: fmt.Sprintf("default for parameter %d of %s: %v", index, c.name, err),
			}
		}
		c.defaults[index] = v
		return nil
	}
}

// ParseConstructor analyzes fn and applies opts.
func ParseConstructor(fn any, opts ...ConstructorOption) (*Constructor, error) {
	if fn == nil {
		return nil, &InvalidConstructorError{Reason: "constructor cannot be nil"}
	}

	fnValue := reflect.ValueOf(fn)
	fnType := fnValue.Type()
	if fnType.Kind() != reflect.Func {
		return nil, &InvalidConstructorError{Reason: fmt.Sprintf("constructor must be a function, got %v", fnType)}
	}
	if fnValue.IsNil() {
		return nil, &InvalidConstructorError{Reason: "constructor cannot be a nil function"}
	}
	if fnType.IsVariadic() {
		return nil, &InvalidConstructorError{Reason: fmt.Sprintf("variadic constructor %v is not supported", fnType)}
	}

	numOut := fnType.NumOut()
	if numOut == 0 || numOut > 2 {
		return nil, &InvalidConstructorError{
			Reason: fmt.Sprintf("constructor must return (T) or (T, error), got %d return values", numOut),
		}
	}
	returnsError := false
	if numOut == 2 {
		if fnType.Out(1) != errorInterface {
			return nil, &InvalidConstructorError{
				Reason: fmt.Sprintf("constructor's second return value must be error, got %v", fnType.Out(1)),
			}
		}
		returnsError = true
	}

	params := make([]reflect.Type, fnType.NumIn())
	for i := range params {
		params[i] = fnType.In(i)
	}

	c := &Constructor{
		fn:           fnValue,
		params:       params,
		defaults:     make(map[int]reflect.Value),
		returnsError: returnsError,
		returnType:   fnType.Out(0),
		name:         funcName(fnValue),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// implicitConstructor builds the zero-argument constructor used for pointer
// to struct types that declare none.
func implicitConstructor(t reflect.Type) *Constructor {
	fnType := reflect.FuncOf(nil, []reflect.Type{t}, false)
	fn := reflect.MakeFunc(fnType, func([]reflect.Value) []reflect.Value {
		return []reflect.Value{reflect.New(t.Elem())}
	})
	return &Constructor{
		fn:         fn,
		defaults:   make(map[int]reflect.Value),
		returnType: t,
		name:       "new(" + t.Elem().String() + ")",
	}
}

// NumParams returns the declared parameter count.
func (c *Constructor) NumParams() int {
	return len(c.params)
}

// Params returns the parameter types.
func (c *Constructor) Params() []reflect.Type {
	return slices.Clone(c.params)
}

// ReturnType returns the instance type built by the constructor.
func (c *Constructor) ReturnType() reflect.Type {
	return c.returnType
}

// HasDefault reports whether parameter i has a declared default.
func (c *Constructor) HasDefault(i int) bool {
	_, ok := c.defaults[i]
	return ok
}

func (c *Constructor) String() string {
	names := make([]string, len(c.params))
	for i, p := range c.params {
		names[i] = p.String()
	}
	return fmt.Sprintf("%s(%s)", c.name, strings.Join(names, ", "))
}

// Invoke calls the constructor. Each parameter is resolved through r when
// possible and falls back to its declared default otherwise.
func (c *Constructor) Invoke(r Resolver) (any, error) {
	args := make([]reflect.Value, len(c.params))
	for i, paramType := range c.params {
		resolved, ok, err := r.TryResolve(paramType)
		if err != nil {
			return nil, fmt.Errorf("parameter %d (%v) of %s: %w", i, paramType, c.name, err)
		}
		if ok {
			arg, err := ValueFor(resolved, paramType)
			if err != nil {
				return nil, fmt.Errorf("parameter %d of %s: %w", i, c.name, err)
			}
			args[i] = arg
			continue
		}
		if def, has := c.defaults[i]; has {
			args[i] = def
			continue
		}
		return nil, fmt.Errorf("parameter %d (%v) of %s: %w", i, paramType, c.name, ErrNotRegistered)
	}

	results := c.fn.Call(args)
	if c.returnsError && !results[1].IsNil() {
		return nil, fmt.Errorf("constructor %s returned error: %w", c.name, results[1].Interface().(error))
	}
	return results[0].Interface(), nil
}

// Selector picks and invokes the constructor of constructible instance types.
type Selector struct {
	registry *Registry
	cache    *constructorCache
}

func newSelector(r *Registry) *Selector {
	return &Selector{
		registry: r,
		cache:    newConstructorCache(),
	}
}

// Select returns the constructor used to build instanceType. The choice is
// memoized per type until the registry changes.
//
// Constructors are walked by parameter count, highest first. A parameter is
// satisfiable when it has a default or its type is registered. The first
// fully satisfiable constructor wins, unless another one with the same count
// is satisfiable too, which is an AmbiguousConstructorError. Lower counts are
// never considered once a winner is found, and failed higher counts are not
// revisited.
func (s *Selector) Select(instanceType reflect.Type) (*Constructor, error) {
	return s.cache.getOrCompute(instanceType, func() (*Constructor, error) {
		return s.choose(instanceType)
	})
}

// Construct selects the constructor of instanceType and invokes it.
func (s *Selector) Construct(r Resolver, instanceType reflect.Type) (any, error) {
	c, err := s.Select(instanceType)
	if err != nil {
		return nil, err
	}
	return c.Invoke(r)
}

func (s *Selector) choose(instanceType reflect.Type) (*Constructor, error) {
	declared := s.registry.Constructors(instanceType)
	if len(declared) == 0 {
		if instanceType.Kind() == reflect.Ptr && instanceType.Elem().Kind() == reflect.Struct {
			return implicitConstructor(instanceType), nil
		}
		return nil, &MissingConstructorError{Type: instanceType}
	}

	sorted := slices.Clone(declared)
	slices.SortStableFunc(sorted, func(a, b *Constructor) int {
		return cmp.Compare(b.NumParams(), a.NumParams())
	})

	var winners []*Constructor
	for _, c := range sorted {
		if len(winners) > 0 && c.NumParams() < winners[0].NumParams() {
			break
		}
		if s.satisfiable(c) {
			winners = append(winners, c)
		}
	}

	switch len(winners) {
	case 0:
		candidates := make([]string, len(sorted))
		for i, c := range sorted {
			candidates[i] = c.String()
		}
		return nil, &MissingConstructorError{Type: instanceType, Candidates: candidates}
	case 1:
		s.registry.logger.Debug("constructor selected",
			"type", instanceType.String(),
			"constructor", winners[0].String())
		return winners[0], nil
	default:
		names := make([]string, len(winners))
		for i, c := range winners {
			names[i] = c.String()
		}
		return nil, &AmbiguousConstructorError{Type: instanceType, Constructors: names}
	}
}

func (s *Selector) satisfiable(c *Constructor) bool {
	for i, p := range c.params {
		if c.HasDefault(i) {
			continue
		}
		if !s.registry.IsRegistered(p) {
			return false
		}
	}
	return true
}

func (s *Selector) reset() {
	s.cache.clear()
}

// ValueFor converts a resolved instance to a reflect.Value usable where t is
// expected. A nil instance becomes the zero value of nillable types.
func ValueFor(v any, t reflect.Type) (reflect.Value, error) {
	if v == nil {
		if nillable(t) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil value is not assignable to %v", t)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, fmt.Errorf("value of type %v is not assignable to %v", rv.Type(), t)
	}
	if rv.Type() != t {
		converted := reflect.New(t).Elem()
		converted.Set(rv)
		return converted, nil
	}
	return rv, nil
}

func defaultValue(value any, t reflect.Type) (reflect.Value, error) {
	if value == nil {
		if nillable(t) {
			return reflect.Zero(t), nil
		}
		return reflect.Value{}, fmt.Errorf("nil is not a valid %v", t)
	}
	rv := reflect.ValueOf(value)
	if rv.Type().AssignableTo(t) {
		return ValueFor(value, t)
	}
	if numeric(rv.Type()) && numeric(t) {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("value of type %v is not assignable to %v", rv.Type(), t)
}

func nillable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

func numeric(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	default:
		return false
	}
}

// static reports whether the constructor is a top-level function, so that
// its code pointer identifies it. Closures and method values share code
// between values with different captured state.
func (c *Constructor) static() bool {
	return !anonymousFunc.MatchString(c.name) &&
		!strings.HasSuffix(c.name, "-fm") &&
		!strings.HasPrefix(c.name, "reflect.")
}

func funcName(fn reflect.Value) string {
	if f := runtime.FuncForPC(fn.Pointer()); f != nil {
		return f.Name()
	}
	return fn.Type().String()
}
