package gist

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

var ErrDisallowedOutput = errors.New("output path must be a .json file")

// Collection is the ordered list of records written to the site asset.
type Collection []*Record

func (c Collection) IDs() []string {
	ids := make([]string, len(c))
	for i, r := range c {
		ids[i] = r.ID
	}
	return ids
}

func (c Collection) Index() map[string]*Record {
	idx := make(map[string]*Record, len(c))
	for _, r := range c {
		idx[r.ID] = r
	}
	return idx
}

// Remove returns a copy of c without the given ids, plus how many were dropped.
func (c Collection) Remove(ids []string) (Collection, int) {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}

	out := make(Collection, 0, len(c))
	for _, r := range c {
		if _, ok := drop[r.ID]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, len(c) - len(out)
}

// LoadCollection reads the cached asset. A missing or unreadable file is an
// empty collection, never an error.
func LoadCollection(path string) Collection {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Warn().Err(err).Str("path", path).Msg("Cannot read gist cache, starting empty")
		}
		return Collection{}
	}

	var raw []*Record
	if err = json.Unmarshal(data, &raw); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Malformed gist cache, starting empty")
		return Collection{}
	}

	seen := make(map[string]struct{}, len(raw))
	c := make(Collection, 0, len(raw))
	for _, r := range raw {
		if r == nil || r.ID == "" {
			continue
		}
		if _, ok := seen[r.ID]; ok {
			log.Debug().Str("gist", r.ID).Msg("Dropping duplicate cached gist")
			continue
		}
		seen[r.ID] = struct{}{}
		c = append(c, r)
	}
	return c
}

func CheckOutputPath(path string) error {
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return fmt.Errorf("%w: %s", ErrDisallowedOutput, path)
	}
	return nil
}

// SaveCollection overwrites path with the pretty printed collection.
func SaveCollection(path string, c Collection) error {
	if err := CheckOutputPath(path); err != nil {
		return err
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create output directory: %w", err)
		}
	}

	if c == nil {
		c = Collection{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c); err != nil {
		return fmt.Errorf("cannot encode gists: %w", err)
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}
