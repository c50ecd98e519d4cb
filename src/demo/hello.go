// Package demo is the example application served by the errortrail binaries.
package demo

import (
	"context"
	"net/http"

	"errortrail/src/capture"
	"errortrail/src/registry"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

const (
	Hello    registry.Kind = "Hello"
	Greeting registry.Kind = "Greeting"
)

// NewRegistry declares the demo kinds and registers their handlers.
func NewRegistry() *registry.Registry {
	tax := registry.NewTaxonomy()
	tax.MustDeclare(Hello)
	tax.MustDeclare(Greeting, Hello)

	reg := registry.New(tax)
	reg.MustRegister(Hello, "hello-logger", logHello)
	reg.MustRegister(Greeting, "greeting", answerGreeting)
	return reg
}

func logHello(_ context.Context, f *registry.Failure) (registry.Result, error) {
	logger.WithFields(map[string]interface{}{
		"kind":       f.Kind,
		"request_id": f.RequestID,
	}).Info("hello failure seen")
	return registry.Declined(), nil
}

func answerGreeting(_ context.Context, f *registry.Failure) (registry.Result, error) {
	return registry.Handled(registry.Response{
		Status:      http.StatusOK,
		ContentType: "text/plain; charset=utf-8",
		Body:        []byte("Greeting handled: " + f.Message),
	}), nil
}

// Routes mounts "/" which always fails with Hello("World"), and "/greet"
// which returns a Greeting that a handler turns into a 200.
func Routes(d *capture.Dispatcher) func(r chi.Router) {
	return func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			panic(registry.NewError(Hello, "World"))
		})
		r.Get("/greet", capture.Handle(d, func(w http.ResponseWriter, r *http.Request) error {
			return registry.NewError(Greeting, "Hi")
		}))
	}
}
