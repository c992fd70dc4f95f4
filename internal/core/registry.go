package core

import (
	"errors"
	"fmt"
	"sort"
)

var (
	errEndpointExists   = errors.New("endpoint already registered")
	errInvalidArguments = errors.New("invalid arguments")
)

// Registry хранит маршруты шлюза. После NewRegistry не изменяется,
// поэтому читается из любых горутин без блокировок.
type Registry struct {
	endpoints map[string]EndpointDefinition
}

// NewRegistry строит реестр из определений; имена маршрутов должны быть уникальны.
func NewRegistry(defs []EndpointDefinition) (*Registry, error) {
	endpoints := make(map[string]EndpointDefinition, len(defs))
	for _, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("endpoint name is empty: %w", errInvalidArguments)
		}
		if def.Command == "" {
			return nil, fmt.Errorf("%s: command is empty: %w", def.Name, errInvalidArguments)
		}
		if _, exists := endpoints[def.Name]; exists {
			return nil, fmt.Errorf("%s: %w", def.Name, errEndpointExists)
		}
		endpoints[def.Name] = cloneDefinition(def)
	}
	return &Registry{endpoints: endpoints}, nil
}

// Resolve ищет маршрут по точному совпадению пути.
func (r *Registry) Resolve(path string) (EndpointDefinition, bool) {
	def, ok := r.endpoints[path]
	return def, ok
}

// Describe возвращает карту маршрут -> описание.
func (r *Registry) Describe() map[string]string {
	out := make(map[string]string, len(r.endpoints))
	for name, def := range r.endpoints {
		out[name] = def.Description
	}
	return out
}

// Names возвращает отсортированный список маршрутов.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.endpoints))
	for name := range r.endpoints {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len возвращает число маршрутов.
func (r *Registry) Len() int { return len(r.endpoints) }

func cloneDefinition(def EndpointDefinition) EndpointDefinition {
	def.Args = append([]string(nil), def.Args...)
	def.Headers = append([]Header(nil), def.Headers...)
	return def
}
