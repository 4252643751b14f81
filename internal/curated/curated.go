// Package curated resolves the maintainer's ordered list of gist identifiers.
//
// The YAML list is the primary source. The HTML marker array and the plain
// text file are read only when the YAML list is absent or empty, so older
// site checkouts keep working.
package curated

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"
	"github.com/sitekit-dev/sitekit/internal/utils"
	"gopkg.in/yaml.v3"
)

type Sources struct {
	YAMLFile string
	HTMLFile string
	// Marker is the JavaScript variable holding the id array in HTMLFile.
	Marker   string
	TextFile string
}

type list struct {
	Gists []string `yaml:"gists"`
}

var quoted = regexp.MustCompile(`"([^"]*)"|'([^']*)'`)

// Resolve returns the ids of the first source that yields any, or an empty
// list when none does. Unreadable sources are logged and skipped.
func Resolve(s Sources) []string {
	readers := []struct {
		name string
		path string
		read func(string) ([]string, error)
	}{
		{"yaml", s.YAMLFile, ReadYAML},
		{"html", s.HTMLFile, func(p string) ([]string, error) { return ReadHTML(p, s.Marker) }},
		{"text", s.TextFile, ReadText},
	}

	v := utils.NewValidator()
	for _, r := range readers {
		if r.path == "" {
			continue
		}
		ids, err := r.read(r.path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Warn().Err(err).Str("source", r.name).Str("path", r.path).Msg("Cannot read curated gists")
			}
			continue
		}

		valid := make([]string, 0, len(ids))
		for _, id := range utils.UniqueNonEmpty(ids) {
			if !v.IsGistID(id) {
				log.Warn().Str("gist", id).Str("path", r.path).Msg("Ignoring invalid gist id")
				continue
			}
			valid = append(valid, id)
		}
		if len(valid) > 0 {
			log.Debug().Str("source", r.name).Str("path", r.path).Int("count", len(valid)).Msg("Resolved curated gists")
			return valid
		}
	}
	return []string{}
}

// ReadYAML accepts either a document with a top level gists key or a bare
// sequence of ids.
func ReadYAML(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ids []string
	if err = yaml.Unmarshal(data, &ids); err == nil {
		return ids, nil
	}

	var l list
	if err = yaml.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("cannot decode %s: %w", path, err)
	}
	return l.Gists, nil
}

// ReadHTML finds `marker = [ ... ]` in the page's inline scripts and returns
// the quoted strings inside the brackets.
func ReadHTML(path, marker string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("cannot parse %s: %w", path, err)
	}

	re, err := regexp.Compile(`(?s)` + regexp.QuoteMeta(marker) + `\s*=\s*\[(.*?)\]`)
	if err != nil {
		return nil, err
	}

	var ids []string
	doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		m := re.FindStringSubmatch(sel.Text())
		if m == nil {
			return true
		}
		for _, q := range quoted.FindAllStringSubmatch(m[1], -1) {
			ids = append(ids, q[1]+q[2])
		}
		return false
	})
	return ids, nil
}

// ReadText reads one id per line, ignoring blank lines and # comments.
func ReadText(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var ids []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		ids = append(ids, line)
	}
	return ids, scanner.Err()
}
