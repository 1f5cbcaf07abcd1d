package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Form names used as routing keys.
const (
	FormContact = "contact"
	FormLead    = "lead"
	FormTest    = "test"
)

// Routes maps a form name to the staff numbers notified for it.
type Routes map[string][]string

// For returns the numbers routed for form, or fallback when none are set.
func (r Routes) For(form string, fallback []string) []string {
	if nums := r[form]; len(nums) > 0 {
		return nums
	}
	return fallback
}

// LoadRoutes reads the routes YAML file at filePath. Values may reference
// environment variables as ${ENV:NAME}. A missing file yields empty Routes.
//
//	contact:
//	  - "94771461925"
//	lead:
//	  - "${ENV:SALES_PHONE}"
func LoadRoutes(filePath string) (Routes, error) {
	data, err := os.ReadFile(filePath) //nolint:gosec // path is from admin-configured data dir
	if err != nil {
		if os.IsNotExist(err) {
			return Routes{}, nil
		}
		return nil, fmt.Errorf("reading routes %q: %w", filePath, err)
	}

	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing routes %q: %w", filePath, err)
	}

	routes := make(Routes, len(raw))
	for form, nums := range raw {
		out := make([]string, 0, len(nums))
		for _, n := range nums {
			v, err := interpolateEnv(n)
			if err != nil {
				return nil, fmt.Errorf("routes %q form %q: %w", filePath, form, err)
			}
			if v = strings.TrimSpace(v); v != "" {
				out = append(out, v)
			}
		}
		routes[form] = out
	}
	return routes, nil
}

// interpolateEnv replaces all ${ENV:VAR_NAME} patterns in s with the corresponding
// environment variable values. Returns an error if a referenced variable is not set.
func interpolateEnv(s string) (string, error) {
	result := s
	for {
		start := strings.Index(result, "${ENV:")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}")
		if end == -1 {
			break
		}
		end += start
		varName := result[start+6 : end]
		value := os.Getenv(varName)
		if value == "" {
			return "", fmt.Errorf("required env var %q is not set", varName)
		}
		result = result[:start] + value + result[end+1:]
	}
	return result, nil
}
