package dict

import (
	"context"
	"time"

	"github.com/GriffinCanCode/wordlens/internal/errors"
	"github.com/GriffinCanCode/wordlens/internal/trace"
)

// Remote is the fallback tier.
type Remote interface {
	Lookup(ctx context.Context, word string) (Entry, error)
}

// Resolver tries the local store, then the remote service.
type Resolver struct {
	store  Store
	remote Remote
}

// NewResolver builds a resolver. store may be nil when no local
// dictionary is configured.
func NewResolver(store Store, remote Remote) *Resolver {
	return &Resolver{store: store, remote: remote}
}

// Resolve looks word up. Local failures are logged and fall through to the
// remote tier; the remote result is final.
func (r *Resolver) Resolve(ctx context.Context, word string) Outcome {
	log := trace.Logger(ctx)

	if r.store != nil {
		start := time.Now()
		row, err := r.store.Lookup(ctx, word)
		if err == nil {
			log.Debug("local dictionary hit", "word", word, "elapsed_ms", time.Since(start).Milliseconds())
			return found(row.Entry())
		}
		log.Warn("local dictionary lookup failed", "word", word, "error", err)
	}

	if r.remote == nil {
		return notFound(errors.Newf(errors.NotFound, "no dictionary tier answered %q", word))
	}
	e, err := r.remote.Lookup(ctx, word)
	switch {
	case err == nil:
		return found(e)
	case errors.IsCode(err, errors.NotFound):
		return notFound(err)
	default:
		return failed(err)
	}
}

// Lookup resolves word and renders the entry as indented JSON.
func (r *Resolver) Lookup(ctx context.Context, word string) (string, error) {
	out := r.Resolve(ctx, word)
	if out.Status != StatusFound {
		return "", out.Err
	}
	s, err := out.Entry.Pretty()
	if err != nil {
		return "", errors.Wrap(err, errors.Internal, "encode entry")
	}
	return s, nil
}
