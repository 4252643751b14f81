package gist

// Record is the subset of a gist kept in the site asset.
type Record struct {
	ID          string          `json:"id"`
	HTMLURL     string          `json:"html_url"`
	Description string          `json:"description"`
	Files       map[string]File `json:"files"`
}

type File struct {
	RawURL   string `json:"raw_url"`
	Type     string `json:"type"`
	Language string `json:"language"`
}

// apiGist mirrors the parts of the GitHub gist payload we read.
// Nullable fields are pointers so null and missing both decode to nil.
type apiGist struct {
	ID          *string                `json:"id"`
	HTMLURL     *string                `json:"html_url"`
	Description *string                `json:"description"`
	Files       map[string]apiGistFile `json:"files"`
}

type apiGistFile struct {
	RawURL   *string `json:"raw_url"`
	Type     *string `json:"type"`
	Language *string `json:"language"`
}

func (g *apiGist) toRecord() *Record {
	r := &Record{
		ID:          deref(g.ID),
		HTMLURL:     deref(g.HTMLURL),
		Description: deref(g.Description),
		Files:       make(map[string]File, len(g.Files)),
	}
	for name, f := range g.Files {
		r.Files[name] = File{
			RawURL:   deref(f.RawURL),
			Type:     deref(f.Type),
			Language: deref(f.Language),
		}
	}
	return r
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
