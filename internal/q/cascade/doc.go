// Package cascade loads layered configuration into a flat Go struct with predictable precedence.
//
// A Loader holds sources ordered from lowest to highest priority. Register them with the With* methods, then call StrictlyLoad. Later sources overwrite earlier
// values field by field.
//
// Sources
//   - Defaults from a map[string]any.
//   - TOML files read at load time. WithTOMLFile registers a specific path; WithNearestTOMLFile searches upward from a starting path for the first readable,
//     non-empty file with a given name.
//   - Environment variables mapped to keys via WithEnv; missing variables are ignored and present values are strings.
//
// Keys are matched case-insensitively against the `cascade` tag name, then the field name. Unknown keys are ignored. Values are coerced when reasonable (ex: "4"
// -> 4 for an int field). time.Duration fields accept Go duration strings ("1500ms") or integer seconds.
//
// A field named XProvidence of type Providence next to field X records which source last set X.
//
// Example
//
//	type Config struct {
//	    Context           int
//	    ContextProvidence cascade.Providence
//	}
//
//	var cfg Config
//	err := cascade.New().
//	    WithDefaults(map[string]any{"context": 4}).
//	    WithNearestTOMLFile(".inlinesnap.toml", "").
//	    WithEnv(map[string]string{"context": "INLINESNAP_CONTEXT"}).
//	    StrictlyLoad(&cfg)
package cascade
