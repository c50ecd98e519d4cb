package registry

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"errortrail/src/model"
)

// Failure is one captured failure on its way through resolution.
type Failure struct {
	Kind       Kind
	Message    string
	StackTrace string

	// Err is the original error, or the recovered value wrapped as an error.
	Err error
	// Recovered is true when the failure came from a panic.
	Recovered bool

	Method    string
	Path      string
	RequestID string
}

// Response is what a handler wants written back to the client.
type Response struct {
	Status      int
	ContentType string
	Body        []byte
}

// GenericFailure is the fixed response used when no handler produced one.
func GenericFailure() Response {
	return Response{
		Status:      http.StatusInternalServerError,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte(http.StatusText(http.StatusInternalServerError)),
	}
}

// Result is what a handler returns: either a response, or a decline.
type Result struct {
	handled  bool
	response Response
}

func Handled(resp Response) Result { return Result{handled: true, response: resp} }

func Declined() Result { return Result{} }

func (r Result) IsHandled() bool    { return r.handled }
func (r Result) Response() Response { return r.response }

// Handler recovers from a failure. Returning an error of the same kind as the
// failure counts as a decline; any other error ends resolution.
type Handler func(ctx context.Context, f *Failure) (Result, error)

// Registration associates a kind with a named handler.
type Registration struct {
	Kind    Kind
	Name    string
	Handler Handler
}

// Candidate is a registration selected for a failure, with its specificity.
type Candidate struct {
	Registration
	Distance int
}

// Registry maps kinds to handlers. It is meant to be filled at startup and
// only read while serving traffic.
type Registry struct {
	mu            sync.RWMutex
	taxonomy      *Taxonomy
	registrations []Registration
}

func New(taxonomy *Taxonomy) *Registry {
	if taxonomy == nil {
		taxonomy = NewTaxonomy()
	}
	return &Registry{taxonomy: taxonomy}
}

func (r *Registry) Taxonomy() *Taxonomy { return r.taxonomy }

// Register adds a handler for kind, or replaces the existing one. A
// replacement keeps the position of the original registration.
func (r *Registry) Register(kind Kind, name string, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("registry: nil handler for %q", kind)
	}
	if name == "" {
		return fmt.Errorf("registry: handler for %q needs a name", kind)
	}
	if name == UnhandledName {
		return fmt.Errorf("registry: handler name %q is reserved", name)
	}
	if !r.taxonomy.Known(kind) {
		return fmt.Errorf("registry: kind %q is not declared", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reg := Registration{Kind: kind, Name: name, Handler: handler}
	for i := range r.registrations {
		if r.registrations[i].Kind == kind {
			r.registrations[i] = reg
			return nil
		}
	}
	r.registrations = append(r.registrations, reg)
	return nil
}

// MustRegister is Register for setup code.
func (r *Registry) MustRegister(kind Kind, name string, handler Handler) {
	if err := r.Register(kind, name, handler); err != nil {
		panic(err)
	}
}

// Resolve returns every registration applicable to f, most specific first.
// Candidates at the same distance keep registration order.
func (r *Registry) Resolve(f *Failure) []Candidate {
	distances := r.taxonomy.Distances(f.Kind)

	r.mu.RLock()
	defer r.mu.RUnlock()

	candidates := make([]Candidate, 0, len(r.registrations))
	for _, reg := range r.registrations {
		if d, ok := distances[reg.Kind]; ok {
			candidates = append(candidates, Candidate{Registration: reg, Distance: d})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Distance < candidates[j].Distance
	})

	return candidates
}

// UnhandledName is the synthetic attempt recorded when resolution is exhausted.
const UnhandledName = model.UnhandledMarker

// Declines reports whether err, returned by a handler for f, means "try the next one".
func Declines(f *Failure, err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == f.Kind
}
