package usecase

import (
	"context"

	apperrors "mongo-testkit/internal/shared/errors"
	"mongo-testkit/internal/testkit/domain/model"
)

// CollectionNamer turns a prefix and discriminating values into a collection name.
type CollectionNamer struct {
	run      *Run
	renderer model.NameRenderer
}

// NewCollectionNamer creates a namer drawing fallback prefixes from run.
func NewCollectionNamer(run *Run, renderer model.NameRenderer) *CollectionNamer {
	if run == nil {
		run = DefaultRun()
	}
	return &CollectionNamer{run: run, renderer: renderer}
}

// Name returns "{prefix}_{suffix}" where suffix joins the rendered values.
func (n *CollectionNamer) Name(ctx context.Context, site CallSite, prefix string, values ...model.Discriminator) (string, error) {
	suffix := n.renderer.Suffix(values...)
	resolved, err := n.ResolvePrefix(ctx, site, prefix)
	if err != nil {
		return "", err
	}
	return resolved + "_" + suffix, nil
}

// ResolvePrefix maps the constructor marker to the constructed type name and
// an empty prefix to the next fallback counter value. Any other prefix is
// returned unchanged.
func (n *CollectionNamer) ResolvePrefix(ctx context.Context, site CallSite, prefix string) (string, error) {
	switch prefix {
	case "":
		return n.run.NextFallback(ctx)
	case ConstructorMarker:
		if typ := site.ConstructorTypeName(); typ != "" {
			return typ, nil
		}
		return "", apperrors.NewInvalidOperationError("collection name could not be derived from the constructor call site").
			WithCause(apperrors.ErrUnresolvableCollectionName).
			WithComponent("collection_namer")
	}
	return prefix, nil
}
