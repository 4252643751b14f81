package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sitekit-dev/sitekit/internal/utils"
	"gopkg.in/yaml.v3"
)

var SitekitVersion = "0.3.0"

var C *config

// Not using nested structs so every key stays addressable
// as a single dotted name, both in files and in CONFIG
type config struct {
	LogLevel string `yaml:"log-level" validate:"required"`
	LogFile  string `yaml:"log-file"`

	GistsOutput         string        `yaml:"gists.output" validate:"required"`
	GistsCuratedFile    string        `yaml:"gists.curated-file"`
	GistsCuratedHTML    string        `yaml:"gists.curated-html"`
	GistsCuratedMarker  string        `yaml:"gists.curated-marker" validate:"required,alphanumunderscore"`
	GistsCuratedText    string        `yaml:"gists.curated-text"`
	GistsApiUrl         string        `yaml:"gists.api-url" validate:"required,url"`
	GistsRequestDelay   time.Duration `yaml:"gists.request-delay" validate:"min=0"`
	GistsRequestTimeout time.Duration `yaml:"gists.request-timeout" validate:"gt=0"`

	AvatarsSourceDir string `yaml:"avatars.source-dir" validate:"required"`
	AvatarsOutputDir string `yaml:"avatars.output-dir" validate:"required"`
	AvatarsMatch     string `yaml:"avatars.match" validate:"required"`
	AvatarsSizes     []int  `yaml:"avatars.sizes" validate:"dive,gt=0"`
	AvatarsQuality   int    `yaml:"avatars.quality" validate:"min=1,max=100"`

	// Read from GITHUB_TOKEN only, never from a file
	GithubToken string `yaml:"-"`
}

func configWithDefaults() *config {
	c := &config{}

	c.LogLevel = "warn"

	c.GistsOutput = filepath.Join("assets", "gists.json")
	c.GistsCuratedFile = filepath.Join("assets", "misc", "curated-gists.yml")
	c.GistsCuratedHTML = "index.html"
	c.GistsCuratedMarker = "CURATED_GISTS"
	c.GistsCuratedText = filepath.Join("assets", "misc", "curated_gists.txt")
	c.GistsApiUrl = "https://api.github.com"
	c.GistsRequestDelay = 200 * time.Millisecond
	c.GistsRequestTimeout = 15 * time.Second

	c.AvatarsSourceDir = filepath.Join("assets", "images")
	c.AvatarsOutputDir = filepath.Join("assets", "images", "optimized")
	c.AvatarsMatch = "avatar"
	c.AvatarsSizes = []int{128, 256, 512}
	c.AvatarsQuality = 80

	return c
}

// InitConfig loads the defaults, then the YAML file at configPath if any,
// then the YAML held by the CONFIG environment variable.
func InitConfig(configPath string, out io.Writer) error {
	c := configWithDefaults()

	if configPath != "" {
		file, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("cannot open config file: %w", err)
		}
		defer file.Close()

		_, _ = fmt.Fprintln(out, "Using config file: "+configPath)

		// Override default values with values from the config file
		d := yaml.NewDecoder(file)
		if err = d.Decode(c); err != nil && err != io.EOF {
			return fmt.Errorf("cannot decode config file: %w", err)
		}
	}

	// Override default values with environment variables (as yaml)
	configEnv := os.Getenv("CONFIG")
	if configEnv != "" {
		_, _ = fmt.Fprintln(out, "Using config from environment variable: CONFIG")
		d := yaml.NewDecoder(strings.NewReader(configEnv))
		if err := d.Decode(c); err != nil {
			return fmt.Errorf("cannot decode CONFIG: %w", err)
		}
	}

	c.GithubToken = os.Getenv("GITHUB_TOKEN")

	if err := utils.NewValidator().Validate(c); err != nil {
		return fmt.Errorf("invalid config: %s", utils.ValidationMessages(&err))
	}

	C = c
	return nil
}

func InitLog() {
	var writer io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}

	if C.LogFile != "" {
		if err := os.MkdirAll(filepath.Dir(C.LogFile), 0755); err != nil {
			panic(err)
		}
		file, err := os.OpenFile(C.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			panic(err)
		}
		writer = zerolog.MultiLevelWriter(writer, file)
	}

	level, err := zerolog.ParseLevel(C.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}

	log.Logger = zerolog.New(writer).Level(level).With().Timestamp().Logger()
}
