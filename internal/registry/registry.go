// Package registry implements the two static lookup tables §4.8
// describes: ExtractorRegistry maps a source-config type to a factory
// yielding a fresh Extractor, and TransformerRegistry maps a source-model
// type to a shared, stateless Transformer. Both are built at startup from
// static declarations; unregistered keys fail at the point of use, not at
// startup (a ConfigError from the extractor registry, a TransformError
// from the transformer registry), since extractors are resolved lazily
// per-source inside the concurrent extract engine.
package registry

import (
	"fmt"

	"github.com/cuong/dayetl/internal/config"
	"github.com/cuong/dayetl/internal/contracts"
	"github.com/cuong/dayetl/internal/etlerrors"
)

// ExtractorFactory builds a fresh Extractor instance for one source
// configuration. A fresh instance per source avoids any shared mutable
// state between concurrently running extractor tasks of the same type.
type ExtractorFactory func(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error)

// ExtractorRegistry maps a source-config `type` string to its factory.
type ExtractorRegistry struct {
	factories map[string]ExtractorFactory
}

// NewExtractorRegistry builds an empty registry; call Register for each
// supported source type at startup.
func NewExtractorRegistry() *ExtractorRegistry {
	return &ExtractorRegistry{factories: make(map[string]ExtractorFactory)}
}

// Register declares a source type's factory. Re-registering the same
// type overwrites the previous factory (used by tests to stub extractors).
func (r *ExtractorRegistry) Register(sourceType string, factory ExtractorFactory) {
	r.factories[sourceType] = factory
}

// New resolves and instantiates the extractor for sc.Type. Returns a
// ConfigError if no factory is registered for that type.
func (r *ExtractorRegistry) New(sc config.SourceConfig, scratchRoot string) (contracts.Extractor, error) {
	factory, ok := r.factories[sc.Type]
	if !ok {
		return nil, etlerrors.New(etlerrors.KindConfig, etlerrors.StageExtract,
			fmt.Sprintf("no extractor registered for source type %q (source %q)", sc.Type, sc.Name))
	}
	return factory(sc, scratchRoot)
}

// Has reports whether sourceType has a registered factory.
func (r *ExtractorRegistry) Has(sourceType string) bool {
	_, ok := r.factories[sourceType]
	return ok
}

// KnownTypes returns a set view suitable for config.ValidateRegistrations.
func (r *ExtractorRegistry) KnownTypes() map[string]bool {
	out := make(map[string]bool, len(r.factories))
	for k := range r.factories {
		out[k] = true
	}
	return out
}

// TransformerRegistry maps a source-model type to its (stateless, shared)
// Transformer.
type TransformerRegistry struct {
	transformers map[string]contracts.Transformer
}

// NewTransformerRegistry builds an empty registry.
func NewTransformerRegistry() *TransformerRegistry {
	return &TransformerRegistry{transformers: make(map[string]contracts.Transformer)}
}

// Register declares the transformer for a source-model type.
func (r *TransformerRegistry) Register(t contracts.Transformer) {
	r.transformers[t.SourceType()] = t
}

// Lookup resolves the transformer for sourceModelType. Returns a
// TransformError if none is registered (§4.4 step 3).
func (r *TransformerRegistry) Lookup(sourceModelType string) (contracts.Transformer, error) {
	t, ok := r.transformers[sourceModelType]
	if !ok {
		return nil, etlerrors.New(etlerrors.KindTransform, etlerrors.StageTransform,
			fmt.Sprintf("no transformer registered for source-model type %q", sourceModelType))
	}
	return t, nil
}

// TargetTypes returns the dataType every registered transformer produces,
// used by the routing pre-flight check run before the process lock is
// acquired.
func (r *TransformerRegistry) TargetTypes() []string {
	out := make([]string, 0, len(r.transformers))
	for _, t := range r.transformers {
		out = append(out, t.TargetType())
	}
	return out
}
