package snapshot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/codalotl/inlinesnap/internal/q/cascade"
	"github.com/codalotl/inlinesnap/internal/snaperr"
)

// ConfigFileName is the file LoadConfig looks for in the starting directory and its ancestors.
const ConfigFileName = ".inlinesnap.toml"

// RecordMode decides when a new or changed snapshot is written.
type RecordMode string

const (
	RecordMissing RecordMode = "missing" // write only when there is no reference yet
	RecordAll     RecordMode = "all"     // always write
	RecordNever   RecordMode = "never"   // never write
	RecordFailed  RecordMode = "failed"  // write when missing or not matching
)

// ParseRecordMode parses one of "missing", "all", "never", or "failed" (case-insensitive).
func ParseRecordMode(s string) (RecordMode, error) {
	switch m := RecordMode(strings.ToLower(strings.TrimSpace(s))); m {
	case RecordMissing, RecordAll, RecordNever, RecordFailed:
		return m, nil
	}
	return "", snaperr.New(snaperr.KindConfig, "invalid record mode", "value", s)
}

// ColorMode decides whether failure diffs are colored.
type ColorMode string

const (
	ColorAuto ColorMode = "auto" // color when stderr is a terminal and NO_COLOR is unset
	ColorOn   ColorMode = "on"
	ColorOff  ColorMode = "off"
)

// Config is the resolved configuration of a Run.
type Config struct {
	Record  RecordMode
	Context int           // context lines around each change in diffs
	Indent  string        // indent unit used when a source file has no indented line
	Color   ColorMode
	Journal string        // when set, Flush writes records to this directory instead of rewriting sources
	Timeout time.Duration // how long a value may take to produce
}

// DefaultConfig returns the configuration used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		Record:  RecordMissing,
		Context: 4,
		Indent:  "    ",
		Color:   ColorAuto,
		Timeout: 5 * time.Second,
	}
}

// Setting is one resolved configuration key and where its value came from.
type Setting struct {
	Key    string
	Value  string
	Source string // ex: "default", "env", "toml_file (/path/.inlinesnap.toml)"
}

// rawConfig is the cascade destination. Its fields are validated into a Config.
type rawConfig struct {
	Record            string
	RecordProvidence  cascade.Providence
	Context           int
	ContextProvidence cascade.Providence
	Indent            string
	IndentProvidence  cascade.Providence
	Color             string
	ColorProvidence   cascade.Providence
	Journal           string
	JournalProvidence cascade.Providence
	Timeout           time.Duration
	TimeoutProvidence cascade.Providence
}

var configEnv = map[string]string{
	"record":  "INLINESNAP_RECORD",
	"context": "INLINESNAP_CONTEXT",
	"indent":  "INLINESNAP_INDENT",
	"color":   "INLINESNAP_COLOR",
	"journal": "INLINESNAP_JOURNAL",
	"timeout": "INLINESNAP_TIMEOUT",
}

// LoadConfig resolves configuration from defaults, the nearest .inlinesnap.toml at or above dir (the working directory if dir is ""), and INLINESNAP_*
// environment variables, in increasing priority.
func LoadConfig(dir string) (Config, error) {
	cfg, _, err := ExplainConfig(dir)
	return cfg, err
}

// ExplainConfig is LoadConfig that also reports the source of every setting.
func ExplainConfig(dir string) (Config, []Setting, error) {
	d := DefaultConfig()
	var raw rawConfig
	err := cascade.New().
		WithDefaults(map[string]any{
			"record":  string(d.Record),
			"context": d.Context,
			"indent":  d.Indent,
			"color":   string(d.Color),
			"journal": "",
			"timeout": d.Timeout,
		}).
		WithNearestTOMLFile(ConfigFileName, dir).
		WithEnv(configEnv).
		StrictlyLoad(&raw)
	if err != nil {
		return Config{}, nil, snaperr.Wrap(snaperr.KindConfig, "load config", err)
	}

	cfg, err := raw.validate()
	if err != nil {
		return Config{}, nil, err
	}

	settings := []Setting{
		{Key: "record", Value: string(cfg.Record), Source: raw.RecordProvidence.String()},
		{Key: "context", Value: strconv.Itoa(cfg.Context), Source: raw.ContextProvidence.String()},
		{Key: "indent", Value: strconv.Quote(cfg.Indent), Source: raw.IndentProvidence.String()},
		{Key: "color", Value: string(cfg.Color), Source: raw.ColorProvidence.String()},
		{Key: "journal", Value: cfg.Journal, Source: raw.JournalProvidence.String()},
		{Key: "timeout", Value: cfg.Timeout.String(), Source: raw.TimeoutProvidence.String()},
	}
	return cfg, settings, nil
}

func (raw rawConfig) validate() (Config, error) {
	record, err := ParseRecordMode(raw.Record)
	if err != nil {
		return Config{}, err
	}
	color, err := parseColorMode(raw.Color)
	if err != nil {
		return Config{}, err
	}
	indent, err := parseIndent(raw.Indent)
	if err != nil {
		return Config{}, err
	}
	if raw.Context < 0 {
		return Config{}, snaperr.New(snaperr.KindConfig, "context must not be negative", "value", raw.Context)
	}
	if raw.Timeout <= 0 {
		return Config{}, snaperr.New(snaperr.KindConfig, "timeout must be positive", "value", raw.Timeout)
	}
	return Config{
		Record:  record,
		Context: raw.Context,
		Indent:  indent,
		Color:   color,
		Journal: cascade.ExpandPath(raw.Journal),
		Timeout: raw.Timeout,
	}, nil
}

func parseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(strings.ToLower(strings.TrimSpace(s))); m {
	case ColorAuto, ColorOn, ColorOff:
		return m, nil
	}
	return "", snaperr.New(snaperr.KindConfig, "invalid color mode", "value", s)
}

// parseIndent accepts literal spaces or tabs, "tab", or a number of spaces.
func parseIndent(s string) (string, error) {
	if s == "tab" {
		return "\t", nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		if n < 1 || n > 16 {
			return "", snaperr.New(snaperr.KindConfig, "indent width out of range", "value", n)
		}
		return strings.Repeat(" ", n), nil
	}
	if s == "" || strings.Trim(s, " \t") != "" {
		return "", snaperr.New(snaperr.KindConfig, "indent must be spaces or tabs", "value", fmt.Sprintf("%q", s))
	}
	return s, nil
}
