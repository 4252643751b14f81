package gist

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/sitekit-dev/sitekit/internal/utils"
)

var (
	ErrNoIdentifiers            = errors.New("no gist IDs provided")
	ErrDeleteWithoutIdentifiers = errors.New("delete requires explicit gist IDs")
)

type SyncOptions struct {
	// Output is the JSON asset read as the cache and rewritten at the end.
	Output string
	// Curated is the maintainer list and sets the order of the asset.
	Curated []string
	// Explicit IDs come from the command line and are always re-fetched.
	// Those missing from Curated are appended after it.
	Explicit []string
	Force    bool
	Delete   bool
	// Prune drops cached gists that are neither curated nor explicit.
	Prune bool
}

type Result struct {
	Fetched  []string
	Failed   []string
	Removed  int
	Total    int
	Written  bool
	UpToDate bool
}

type Synchronizer struct {
	Fetcher Fetcher
	Out     io.Writer
}

func NewSynchronizer(f Fetcher, out io.Writer) *Synchronizer {
	if out == nil {
		out = io.Discard
	}
	return &Synchronizer{Fetcher: f, Out: out}
}

func (s *Synchronizer) Run(ctx context.Context, opts SyncOptions) (*Result, error) {
	if err := CheckOutputPath(opts.Output); err != nil {
		return nil, err
	}

	explicit := utils.UniqueNonEmpty(opts.Explicit)

	if opts.Delete {
		return s.delete(opts.Output, explicit)
	}

	// Explicit ids keep their curated position; the others go last
	desired := utils.UniqueNonEmpty(append(slices.Clone(opts.Curated), explicit...))
	if len(desired) == 0 {
		return nil, ErrNoIdentifiers
	}

	cached := LoadCollection(opts.Output)
	cachedIdx := cached.Index()

	var toFetch []string
	for _, id := range desired {
		_, isCached := cachedIdx[id]
		if opts.Force || !isCached || utils.SliceContains(explicit, id) {
			toFetch = append(toFetch, id)
		}
	}

	res := &Result{}

	if len(toFetch) == 0 && !opts.Prune {
		merged := Merge(desired, nil, cached, true)
		if slices.Equal(merged.IDs(), cached.IDs()) {
			res.UpToDate = true
			res.Total = len(cached)
			_, _ = fmt.Fprintf(s.Out, "Gists are up to date (%s)\n", opts.Output)
			return res, nil
		}
	}

	fetched := make(map[string]*Record, len(toFetch))
	for i, id := range toFetch {
		_, _ = fmt.Fprintf(s.Out, "[%d/%d] Fetching %s...\n", i+1, len(toFetch), id)

		record, err := s.Fetcher.Fetch(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			_, hasCache := cachedIdx[id]
			log.Error().Err(err).Str("gist", id).Bool("cached", hasCache).Msg("Failed to fetch gist")
			res.Failed = append(res.Failed, id)
			continue
		}
		if record.ID != id {
			log.Warn().Str("gist", id).Str("returned", record.ID).Msg("Gist API returned another id, keeping cache")
			res.Failed = append(res.Failed, id)
			continue
		}
		fetched[id] = record
		res.Fetched = append(res.Fetched, id)
	}

	merged := Merge(desired, fetched, cached, !opts.Prune)
	if err := SaveCollection(opts.Output, merged); err != nil {
		return nil, err
	}

	res.Written = true
	res.Total = len(merged)
	res.Removed = len(cached) - countKept(cached, merged)
	_, _ = fmt.Fprintf(s.Out, "Wrote %d gists to %s\n", len(merged), opts.Output)
	return res, nil
}

func (s *Synchronizer) delete(output string, ids []string) (*Result, error) {
	if len(ids) == 0 {
		return nil, ErrDeleteWithoutIdentifiers
	}

	cached := LoadCollection(output)
	kept, removed := cached.Remove(ids)
	if err := SaveCollection(output, kept); err != nil {
		return nil, err
	}

	_, _ = fmt.Fprintf(s.Out, "Removed %d gists, %d left in %s\n", removed, len(kept), output)
	return &Result{Removed: removed, Total: len(kept), Written: true}, nil
}

// Merge orders desired ids first, preferring a fetched record over a cached
// one and skipping ids that have neither. When keepUnclaimed is set, cached
// records outside the desired list follow in their previous order.
func Merge(desired []string, fetched map[string]*Record, cached Collection, keepUnclaimed bool) Collection {
	cachedIdx := cached.Index()
	placed := make(map[string]struct{}, len(desired)+len(cached))
	out := make(Collection, 0, len(desired)+len(cached))

	for _, id := range desired {
		if _, ok := placed[id]; ok {
			continue
		}
		record, ok := fetched[id]
		if !ok {
			record, ok = cachedIdx[id]
		}
		if !ok {
			continue
		}
		placed[id] = struct{}{}
		out = append(out, record)
	}

	if !keepUnclaimed {
		return out
	}

	for _, r := range cached {
		if _, ok := placed[r.ID]; ok {
			continue
		}
		placed[r.ID] = struct{}{}
		out = append(out, r)
	}
	return out
}

func countKept(before, after Collection) int {
	idx := after.Index()
	n := 0
	for _, r := range before {
		if _, ok := idx[r.ID]; ok {
			n++
		}
	}
	return n
}
