package registry

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"
)

// Kind names a class of failure. Kinds form an explicit ancestry graph
// declared up front; nothing is inferred from Go types at resolution time.
type Kind string

// Exception is the root of every taxonomy. Kinds that were never declared
// behave as direct children of Exception.
const Exception Kind = "Exception"

// Panic is the kind given to recovered panics whose value is not an error.
const Panic Kind = "Panic"

// Kinded is implemented by errors that know their own kind.
type Kinded interface {
	Kind() Kind
}

// Taxonomy is the static parent table used to measure specificity.
type Taxonomy struct {
	mu      sync.RWMutex
	parents map[Kind][]Kind
}

func NewTaxonomy() *Taxonomy {
	t := &Taxonomy{parents: map[Kind][]Kind{}}
	// Panic is always available so recovered panics can be targeted.
	t.parents[Panic] = []Kind{Exception}
	return t
}

// Declare adds kind with the given parents. Parents must already be known,
// which keeps the graph acyclic. With no parents the kind hangs off Exception.
func (t *Taxonomy) Declare(kind Kind, parents ...Kind) error {
	if kind == "" {
		return errors.New("taxonomy: empty kind")
	}
	if kind == Exception {
		return fmt.Errorf("taxonomy: %s is the implicit root and cannot be declared", Exception)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, exists := t.parents[kind]; exists {
		return fmt.Errorf("taxonomy: kind %q already declared", kind)
	}

	if len(parents) == 0 {
		parents = []Kind{Exception}
	}

	seen := make(map[Kind]bool, len(parents))
	ordered := make([]Kind, 0, len(parents))
	for _, p := range parents {
		if p != Exception {
			if _, ok := t.parents[p]; !ok {
				return fmt.Errorf("taxonomy: parent %q of %q is not declared", p, kind)
			}
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		ordered = append(ordered, p)
	}

	t.parents[kind] = ordered
	return nil
}

// MustDeclare is Declare for setup code where a bad taxonomy is a programming error.
func (t *Taxonomy) MustDeclare(kind Kind, parents ...Kind) {
	if err := t.Declare(kind, parents...); err != nil {
		panic(err)
	}
}

// Known reports whether kind is the root or has been declared.
func (t *Taxonomy) Known(kind Kind) bool {
	if kind == Exception {
		return true
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.parents[kind]
	return ok
}

// Distances returns the shortest ancestry distance from kind to each of its
// ancestors, kind itself included at distance 0.
func (t *Taxonomy) Distances(kind Kind) map[Kind]int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	dist := map[Kind]int{kind: 0}
	queue := []Kind{kind}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		parents, ok := t.parents[current]
		if !ok && current != Exception {
			parents = []Kind{Exception}
		}
		for _, p := range parents {
			if _, visited := dist[p]; visited {
				continue
			}
			dist[p] = dist[current] + 1
			queue = append(queue, p)
		}
	}

	return dist
}

// KindError is an error tagged with a Kind and the stack at the point it was created.
type KindError struct {
	kind    Kind
	message string
	cause   error
	stack   string
}

// NewError builds a KindError, recording the caller's stack.
func NewError(kind Kind, format string, args ...any) *KindError {
	return &KindError{
		kind:    kind,
		message: fmt.Sprintf(format, args...),
		stack:   callers(3),
	}
}

// Wrap tags cause with kind. The message is cause's message.
func Wrap(kind Kind, cause error) *KindError {
	return &KindError{
		kind:    kind,
		message: cause.Error(),
		cause:   cause,
		stack:   callers(3),
	}
}

func (e *KindError) Error() string      { return e.message }
func (e *KindError) Kind() Kind         { return e.kind }
func (e *KindError) Unwrap() error      { return e.cause }
func (e *KindError) StackTrace() string { return e.stack }

// KindOf returns the kind of err: the first Kinded error in its chain, or
// the name of its concrete Go type.
func KindOf(err error) Kind {
	if err == nil {
		return Exception
	}

	var kinded Kinded
	if errors.As(err, &kinded) {
		return kinded.Kind()
	}

	return Kind(typeName(err))
}

func typeName(v any) string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if name := t.Name(); name != "" {
		return name
	}
	return t.String()
}

func callers(skip int) string {
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip, pcs)
	frames := runtime.CallersFrames(pcs[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}
