// Package avatar re-encodes profile pictures into WebP at a few fixed sizes.
package avatar

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog/log"
	xwebp "golang.org/x/image/webp"
)

var Extensions = []string{".jpg", ".jpeg", ".png", ".webp"}

type Options struct {
	SourceDir string
	OutputDir string
	// Match is a case-insensitive substring every candidate filename must contain.
	Match   string
	Sizes   []int
	Quality int
}

type FileReport struct {
	Name         string
	OriginalSize int64
	Outputs      []string
	OutputSize   int64
}

type Report struct {
	Files   []FileReport
	Skipped []string
}

type Optimizer struct {
	Options Options
	Out     io.Writer
}

func NewOptimizer(opts Options, out io.Writer) *Optimizer {
	if out == nil {
		out = io.Discard
	}
	return &Optimizer{Options: opts, Out: out}
}

// Candidates lists the regular files of the source directory that look like
// avatars, sorted by name.
func (o *Optimizer) Candidates() ([]string, error) {
	entries, err := os.ReadDir(o.Options.SourceDir)
	if err != nil {
		return nil, fmt.Errorf("cannot list %s: %w", o.Options.SourceDir, err)
	}

	match := strings.ToLower(o.Options.Match)
	var names []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		name := e.Name()
		if !strings.Contains(strings.ToLower(name), match) {
			continue
		}
		if !hasExtension(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (o *Optimizer) Run() (*Report, error) {
	if err := os.MkdirAll(o.Options.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("cannot create output directory: %w", err)
	}

	names, err := o.Candidates()
	if err != nil {
		return nil, err
	}

	report := &Report{}
	for _, name := range names {
		fr, err := o.optimize(name)
		if err != nil {
			_, _ = fmt.Fprintf(o.Out, "Skipping %s: cannot open (%s)\n", name, err)
			report.Skipped = append(report.Skipped, name)
			continue
		}
		_, _ = fmt.Fprintf(o.Out, "%s: %s -> %d files, total %s\n",
			fr.Name, humanize.IBytes(uint64(fr.OriginalSize)), len(fr.Outputs), humanize.IBytes(uint64(fr.OutputSize)))
		report.Files = append(report.Files, *fr)
	}

	_, _ = fmt.Fprintf(o.Out, "Done. Optimized files are in: %s\n", o.Options.OutputDir)
	if len(report.Files) == 0 {
		_, _ = fmt.Fprintf(o.Out, "No avatar files found in %s (files must include '%s' in their name).\n",
			o.Options.SourceDir, o.Options.Match)
	}
	return report, nil
}

// optimize only fails when the source cannot be read or decoded. Write
// failures are logged per variant.
func (o *Optimizer) optimize(name string) (*FileReport, error) {
	data, err := os.ReadFile(filepath.Join(o.Options.SourceDir, name))
	if err != nil {
		return nil, err
	}

	img, err := decode(data)
	if err != nil {
		return nil, err
	}

	fr := &FileReport{Name: name, OriginalSize: int64(len(data))}
	stem := strings.TrimSuffix(name, filepath.Ext(name))

	o.write(fr, stem+".webp", img)

	bounds := img.Bounds()
	for _, size := range o.Options.Sizes {
		if bounds.Dx() < size && bounds.Dy() < size {
			continue
		}
		o.write(fr, stem+"_"+strconv.Itoa(size)+".webp", imaging.Fit(img, size, size, imaging.Lanczos))
	}

	return fr, nil
}

func (o *Optimizer) write(fr *FileReport, name string, img image.Image) {
	path := filepath.Join(o.Options.OutputDir, name)
	size, err := encodeFile(path, opaque(img), o.Options.Quality)
	if err != nil {
		log.Error().Err(err).Str("file", fr.Name).Str("output", name).Msg("Failed to save WebP variant")
		_ = os.Remove(path)
		return
	}
	fr.Outputs = append(fr.Outputs, path)
	fr.OutputSize += size
}

func decode(data []byte) (image.Image, error) {
	mt := DetectMimeType(data)
	if !mt.IsRaster() {
		return nil, fmt.Errorf("unsupported content type %s", mt.ContentType)
	}
	if mt.IsWebP() {
		return xwebp.Decode(bytes.NewReader(data))
	}
	return imaging.Decode(bytes.NewReader(data))
}

// opaque drops the alpha channel, keeping the stored colour values.
func opaque(img image.Image) *image.NRGBA {
	dst := imaging.Clone(img)
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

func encodeFile(path string, img image.Image, quality int) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, err
	}

	if err = webp.Encode(file, img, &webp.Options{Quality: float32(quality)}); err != nil {
		_ = file.Close()
		return 0, err
	}
	if err = file.Close(); err != nil {
		return 0, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func hasExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
