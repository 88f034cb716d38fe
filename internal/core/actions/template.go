// Package actions holds the built-in action handler implementations required
// by the automation engine. Each handler is registered by type name; the
// engine knows nothing about individual handlers.
package actions

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{([^}]+)\}`)

// interpolate replaces {variable} placeholders with values from the entity
// data. Unknown placeholders are left as-is.
func interpolate(template string, data map[string]interface{}) string {
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		name := strings.Trim(match, "{}")
		if value, ok := data[name]; ok {
			return fmt.Sprintf("%v", value)
		}
		return match
	})
}

// configString reads a string value from the action config, falling back to
// the entity data when absent.
func configString(config, entityData map[string]interface{}, key string) string {
	if config != nil {
		if v, ok := config[key].(string); ok && v != "" {
			return v
		}
	}
	if entityData != nil {
		if v, ok := entityData[key].(string); ok && v != "" {
			return v
		}
	}
	return ""
}
