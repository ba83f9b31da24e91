package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Strategy turns a value under test into the text that is compared and recorded.
type Strategy interface {
	// Snapshot returns the text for v. It should return promptly once ctx is done.
	Snapshot(ctx context.Context, v any) (string, error)

	// Ext is the file extension (without a dot) used for file snapshots.
	Ext() string
}

// StrategyFunc adapts a function into a Strategy.
type StrategyFunc struct {
	Extension string
	Func      func(ctx context.Context, v any) (string, error)
}

func (s StrategyFunc) Snapshot(ctx context.Context, v any) (string, error) {
	return s.Func(ctx, v)
}

func (s StrategyFunc) Ext() string {
	return s.Extension
}

// Producer is a value that is computed when it is snapshotted. A Producer passed as the value under test is called under the assertion's timeout, and its result
// is given to the Strategy.
type Producer func(ctx context.Context) (any, error)

var (
	// Lines snapshots strings, byte slices, fmt.Stringers, and errors as text.
	Lines Strategy = StrategyFunc{Extension: "txt", Func: linesSnapshot}

	// JSON snapshots any value as indented JSON. Map keys are sorted.
	JSON Strategy = StrategyFunc{Extension: "json", Func: jsonSnapshot}

	// YAML snapshots any value as YAML with two-space indentation.
	YAML Strategy = StrategyFunc{Extension: "yaml", Func: yamlSnapshot}

	// Description snapshots any value with fmt's %+v verb.
	Description Strategy = StrategyFunc{Extension: "txt", Func: descriptionSnapshot}
)

func linesSnapshot(_ context.Context, v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case error:
		return x.Error(), nil
	case fmt.Stringer:
		return x.String(), nil
	}
	return "", fmt.Errorf("lines strategy: unsupported value of type %T", v)
}

func jsonSnapshot(_ context.Context, v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("json strategy: %w", err)
	}
	return string(data), nil
}

func yamlSnapshot(_ context.Context, v any) (string, error) {
	var b strings.Builder
	enc := yaml.NewEncoder(&b)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return "", fmt.Errorf("yaml strategy: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("yaml strategy: %w", err)
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func descriptionSnapshot(_ context.Context, v any) (string, error) {
	return fmt.Sprintf("%+v", v), nil
}
