package cascade

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Providence records where a configuration value came from.
type Providence struct {
	SourceType       string // ex: "default", "env", "toml_file"
	SourceIdentifier string // ex: "/path/to/.inlinesnap.toml". Can be "" for things without identifiers (default map, env).
}

func (p Providence) IsSet() bool {
	return p.SourceType != ""
}

func (p Providence) Default() bool {
	return p.SourceType == "default"
}

func (p Providence) String() string {
	if p.SourceIdentifier == "" {
		return p.SourceType
	}
	return p.SourceType + " (" + p.SourceIdentifier + ")"
}

// Loader builds a prioritized cascade of configuration sources. The zero value is ready to use; New exists for fluent chaining.
type Loader struct {
	sources []source // Sources are ordered from low to high priority.
}

// New returns a new Loader.
func New() *Loader {
	return &Loader{}
}

// WithDefaults registers m as a source of default values. Keys are matched case-insensitively. A nil map contributes no values.
func (c *Loader) WithDefaults(m map[string]any) *Loader {
	c.sources = append(c.sources, &sourceMap{m: m})
	return c
}

// WithTOMLFile registers the TOML file at path (expanded with ExpandPath). The file is read when loading; a missing file contributes no values.
func (c *Loader) WithTOMLFile(path string) *Loader {
	c.sources = append(c.sources, &sourceTOMLFile{path: ExpandPath(path)})
	return c
}

// WithNearestTOMLFile searches upward from start (or, if empty, the working directory) for the first readable, non-empty file named fileName, and registers it.
// If start is a file, its directory is used. If no file is found, the loader is unchanged. It panics if fileName is absolute.
func (c *Loader) WithNearestTOMLFile(fileName string, start string) *Loader {
	if path := FindNearest(fileName, start); path != "" {
		c.sources = append(c.sources, &sourceTOMLFile{path: path})
	}
	return c
}

// WithEnv registers environment variables as a source. m maps a configuration key to an environment variable name.
func (c *Loader) WithEnv(m map[string]string) *Loader {
	c.sources = append(c.sources, &sourceEnv{keyToEnv: m})
	return c
}

// FindNearest returns the path of the nearest readable, non-empty file named fileName in start or its ancestors, or "" if there is none.
func FindNearest(fileName string, start string) string {
	if filepath.IsAbs(fileName) {
		panic("fileName shouldn't be absolute")
	}
	if start == "" {
		wd, err := os.Getwd()
		if err != nil {
			return ""
		}
		start = wd
	}
	start = ExpandPath(start)
	if fi, err := os.Stat(start); err == nil && !fi.IsDir() {
		start = filepath.Dir(start)
	}

	for dir := start; ; dir = filepath.Dir(dir) {
		candidate := filepath.Join(dir, fileName)
		if data, err := os.ReadFile(candidate); err == nil && strings.TrimSpace(string(data)) != "" {
			return candidate
		}
		if parent := filepath.Dir(dir); parent == dir {
			return ""
		}
	}
}

// StrictlyLoad applies c's sources to dest, a non-nil pointer to a struct, from low to high priority.
//
// A readable source that cannot be parsed, or a value that cannot be coerced to its field's type, fails loading immediately. Missing or unreadable sources and
// unknown keys are not errors. Errors name the source.
func (c *Loader) StrictlyLoad(dest any) error {
	destVal := reflect.ValueOf(dest)
	if dest == nil || destVal.Kind() != reflect.Pointer || destVal.IsNil() || destVal.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("dest must be a non-nil pointer to struct")
	}
	structVal := destVal.Elem()

	fields, err := indexFields(structVal.Type())
	if err != nil {
		return err
	}

	for _, src := range c.sources {
		m, err := src.values()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
				continue
			}
			return fmt.Errorf("%s: %w", src.name(), err)
		}
		prov := src.providence()
		for key, raw := range m {
			idx, ok := fields[strings.ToLower(key)]
			if !ok {
				continue
			}
			field := structVal.Field(idx)
			if err := setField(field, raw); err != nil {
				return fmt.Errorf("%s: %s: %w", src.name(), strings.ToLower(key), err)
			}
			setProvidence(structVal, structVal.Type().Field(idx).Name, prov)
		}
	}
	return nil
}

// indexFields maps lowercased keys to settable field indexes.
func indexFields(t reflect.Type) (map[string]int, error) {
	fields := map[string]int{}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if !f.IsExported() || f.Type == providenceType {
			continue
		}
		key := strings.ToLower(f.Name)
		if tag := strings.TrimSpace(strings.Split(f.Tag.Get("cascade"), ",")[0]); tag != "" {
			if tag == "-" {
				continue
			}
			key = strings.ToLower(tag)
		}
		if prev, ok := fields[key]; ok {
			return nil, fmt.Errorf("struct contains case-insensitive field key collision for %q: %s and %s", key, t.Field(prev).Name, f.Name)
		}
		fields[key] = i
	}
	return fields, nil
}

var (
	providenceType = reflect.TypeOf(Providence{})
	durationType   = reflect.TypeOf(time.Duration(0))
)

func setProvidence(structVal reflect.Value, fieldName string, prov Providence) {
	pf := structVal.FieldByName(fieldName + "Providence")
	if pf.IsValid() && pf.CanSet() && pf.Type() == providenceType {
		pf.Set(reflect.ValueOf(prov))
	}
}

// setField coerces raw into field. raw is a string, bool, int64, float64, or int.
func setField(field reflect.Value, raw any) error {
	if field.Type() == durationType {
		d, err := toDuration(raw)
		if err != nil {
			return err
		}
		field.SetInt(int64(d))
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		switch v := raw.(type) {
		case string:
			field.SetString(v)
		case bool:
			field.SetString(strconv.FormatBool(v))
		case int, int64, float64:
			field.SetString(fmt.Sprint(v))
		default:
			return fmt.Errorf("cannot use %T as string", raw)
		}
	case reflect.Bool:
		switch v := raw.(type) {
		case bool:
			field.SetBool(v)
		case string:
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				return fmt.Errorf("invalid bool %q", v)
			}
			field.SetBool(b)
		default:
			return fmt.Errorf("cannot use %T as bool", raw)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt(raw)
		if err != nil {
			return err
		}
		if field.OverflowInt(n) {
			return fmt.Errorf("%d overflows %s", n, field.Type())
		}
		field.SetInt(n)
	default:
		return fmt.Errorf("unsupported field type %s", field.Type())
	}
	return nil
}

func toInt(raw any) (int64, error) {
	switch v := raw.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("%v is not an integer", v)
		}
		return int64(v), nil
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid integer %q", v)
		}
		return n, nil
	}
	return 0, fmt.Errorf("cannot use %T as integer", raw)
}

// toDuration accepts Go duration strings, time.Durations, and integer seconds.
func toDuration(raw any) (time.Duration, error) {
	switch v := raw.(type) {
	case time.Duration:
		return v, nil
	case string:
		s := strings.TrimSpace(v)
		if d, err := time.ParseDuration(s); err == nil {
			return d, nil
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return time.Duration(n) * time.Second, nil
		}
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	n, err := toInt(raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(n) * time.Second, nil
}
