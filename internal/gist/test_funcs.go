package gist

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// StubFetcher serves records from memory and records every requested id.
type StubFetcher struct {
	Records map[string]*Record
	Errors  map[string]error
	Calls   []string
}

func NewStubFetcher(records ...*Record) *StubFetcher {
	f := &StubFetcher{Records: map[string]*Record{}, Errors: map[string]error{}}
	for _, r := range records {
		f.Records[r.ID] = r
	}
	return f
}

func (f *StubFetcher) Fetch(_ context.Context, id string) (*Record, error) {
	f.Calls = append(f.Calls, id)
	if err, ok := f.Errors[id]; ok {
		return nil, err
	}
	r, ok := f.Records[id]
	if !ok {
		return nil, &APIError{StatusCode: 404, Status: "404 Not Found"}
	}
	return r, nil
}

func TestRecord(id, description string) *Record {
	return &Record{
		ID:          id,
		HTMLURL:     "https://gist.github.com/" + id,
		Description: description,
		Files: map[string]File{
			id + ".go": {
				RawURL:   fmt.Sprintf("https://gist.githubusercontent.com/raw/%s/%s.go", id, id),
				Type:     "application/x-go",
				Language: "Go",
			},
		},
	}
}

// WriteTestCache writes records to a gists.json inside a temp dir and returns its path.
func WriteTestCache(t *testing.T, records ...*Record) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "assets", "gists.json")
	require.NoError(t, SaveCollection(path, Collection(records)))
	return path
}

func ReadTestCache(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return data
}
