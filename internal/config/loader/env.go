package loader

import (
	"os"
	"strconv"
	"strings"
)

// EnvLoader loads configuration from environment variables.
type EnvLoader struct {
	prefix  string            // e.g. "VIZVIEW_"
	mapping map[string]string // env var -> config path
	strings map[string]bool   // config paths kept verbatim
}

// NewEnvLoader creates a loader with the default vizview mappings.
// The prefix should include the trailing underscore.
func NewEnvLoader(prefix string) *EnvLoader {
	l := &EnvLoader{
		prefix:  prefix,
		mapping: make(map[string]string),
		strings: make(map[string]bool),
	}
	for env, path := range defaultEnvMapping() {
		l.mapping[prefix+env] = path
	}
	for _, path := range []string{"renderer", "logLevel", "loader.baseURL", "live.addr"} {
		l.strings[path] = true
	}
	return l
}

func defaultEnvMapping() map[string]string {
	return map[string]string{
		"RENDERER":          "renderer",
		"LOG_LEVEL":         "logLevel",
		"LOADER_BASE_URL":   "loader.baseURL",
		"LOADER_CACHE_SIZE": "loader.cacheSize",
		"LIVE_ADDR":         "live.addr",
		"WATCH_DEBOUNCE":    "watch.debounce",
	}
}

// AddMapping adds a custom environment variable mapping.
func (l *EnvLoader) AddMapping(envVar, configPath string) {
	l.mapping[envVar] = configPath
}

// Load reads environment variables and returns a configuration map.
// Empty values are treated as set.
func (l *EnvLoader) Load() (map[string]any, error) {
	config := make(map[string]any)

	for env, path := range l.mapping {
		if val, ok := os.LookupEnv(env); ok {
			setByPath(config, path, l.value(path, val))
		}
	}

	for _, env := range os.Environ() {
		name, value, ok := strings.Cut(env, "=")
		if !ok || !strings.HasPrefix(name, l.prefix) {
			continue
		}
		if _, mapped := l.mapping[name]; mapped {
			continue
		}
		path := l.envToPath(name)
		setByPath(config, path, l.value(path, value))
	}

	return config, nil
}

func (l *EnvLoader) value(path, raw string) any {
	if l.strings[path] {
		return raw
	}
	return parseValue(raw)
}

// envToPath converts VIZVIEW_LIVE_READ_TIMEOUT to live.readTimeout.
func (l *EnvLoader) envToPath(env string) string {
	parts := strings.Split(strings.TrimPrefix(env, l.prefix), "_")
	section := strings.ToLower(parts[0])
	if len(parts) == 1 {
		return section
	}

	name := strings.ToLower(parts[1])
	for _, part := range parts[2:] {
		if part != "" {
			name += strings.ToUpper(part[:1]) + strings.ToLower(part[1:])
		}
	}
	return section + "." + name
}

// parseValue converts booleans and numbers; everything else stays a string.
func parseValue(s string) any {
	switch strings.ToLower(s) {
	case "true", "yes", "on":
		return true
	case "false", "no", "off":
		return false
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if strings.Contains(s, ".") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f
		}
	}
	return s
}

// setByPath sets a value in a nested map using a dot-separated path.
func setByPath(data map[string]any, path string, value any) {
	parts := strings.Split(path, ".")
	current := data
	for _, part := range parts[:len(parts)-1] {
		next, ok := current[part].(map[string]any)
		if !ok {
			next = make(map[string]any)
			current[part] = next
		}
		current = next
	}
	current[parts[len(parts)-1]] = value
}
