package engine

import (
	"fmt"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
)

// allowedConfigKeys is the fixed set of options the engine's HTTP server
// accepts. Constructing a Config with any other key fails, which catches
// typos that the engine would otherwise silently ignore.
var allowedConfigKeys = map[string]bool{
	"maxTextLength":               true,
	"maxTextHardLength":           true,
	"maxCheckTimeMillis":          true,
	"maxErrorsPerWordRate":        true,
	"maxSpellingSuggestions":      true,
	"maxCheckThreads":             true,
	"cacheSize":                   true,
	"cacheTTLSeconds":             true,
	"requestLimit":                true,
	"requestLimitInBytes":         true,
	"timeoutRequestLimit":         true,
	"requestLimitPeriodInSeconds": true,
	"languageModel":               true,
	"fasttextModel":               true,
	"fasttextBinary":              true,
	"maxWorkQueueSize":            true,
	"rulesFile":                   true,
	"blockedReferrers":            true,
	"premiumOnly":                 true,
	"disabledRuleIds":             true,
	"pipelineCaching":             true,
	"maxPipelinePoolSize":         true,
	"pipelineExpireTimeInSeconds": true,
	"pipelinePrewarming":          true,
}

var listConfigKeys = map[string]bool{
	"disabledRuleIds":  true,
	"blockedReferrers": true,
}

var boolConfigKeys = map[string]bool{
	"premiumOnly":        true,
	"pipelineCaching":    true,
	"pipelinePrewarming": true,
}

// Config is a validated set of engine server options. It serializes to the
// key=value properties file a local server is launched with, or to query
// values for servers managed elsewhere.
type Config struct {
	values map[string]string
}

// NewConfig validates and normalizes opts. List-valued options accept
// []string or a pre-joined string; boolean options accept bool or string.
func NewConfig(opts map[string]any) (*Config, error) {
	if len(opts) == 0 {
		return nil, fmt.Errorf("engine config cannot be empty")
	}

	values := make(map[string]string, len(opts))
	for key, raw := range opts {
		if !allowedConfigKeys[key] {
			return nil, fmt.Errorf("unknown engine config key %q", key)
		}

		switch {
		case listConfigKeys[key]:
			switch v := raw.(type) {
			case []string:
				values[key] = strings.Join(v, ",")
			case string:
				values[key] = v
			default:
				return nil, fmt.Errorf("config key %q wants a string list, got %T", key, raw)
			}
		case boolConfigKeys[key]:
			switch v := raw.(type) {
			case bool:
				values[key] = strconv.FormatBool(v)
			case string:
				b, err := strconv.ParseBool(v)
				if err != nil {
					return nil, fmt.Errorf("config key %q: %w", key, err)
				}
				values[key] = strconv.FormatBool(b)
			default:
				return nil, fmt.Errorf("config key %q wants a bool, got %T", key, raw)
			}
		default:
			values[key] = fmt.Sprint(raw)
		}
	}
	return &Config{values: values}, nil
}

// Get returns the normalized value for key and whether it is set.
func (c *Config) Get(key string) (string, bool) {
	if c == nil {
		return "", false
	}
	v, ok := c.values[key]
	return v, ok
}

// Values returns the options as URL query values.
func (c *Config) Values() url.Values {
	vals := url.Values{}
	if c == nil {
		return vals
	}
	for k, v := range c.values {
		vals.Set(k, v)
	}
	return vals
}

// WriteTemp writes the options as key=value lines to a fresh temporary file
// and returns its path. The caller removes the file when the server stops.
func (c *Config) WriteTemp() (string, error) {
	f, err := os.CreateTemp("", "redline-engine-*.properties")
	if err != nil {
		return "", fmt.Errorf("creating engine config file: %w", err)
	}

	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if _, err := fmt.Fprintf(f, "%s=%s\n", k, c.values[k]); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", fmt.Errorf("writing engine config: %w", err)
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("closing engine config: %w", err)
	}
	return f.Name(), nil
}
