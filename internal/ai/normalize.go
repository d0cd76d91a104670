package ai

import "strings"

// DefaultModel is used when neither the session nor the config names one.
const DefaultModel = "gemini-1.5-flash-8b-latest"

var modelAliases = map[string]string{
	"gemini-1.5-flash":    "gemini-1.5-flash-latest",
	"gemini-1.5-pro":      "gemini-1.5-pro-latest",
	"gemini-pro":          "gemini-1.5-pro-latest",
	"gemini-1.5-flash-8b": "gemini-1.5-flash-8b-latest",
}

// Normalize rewrites short aliases to their canonical ids. Unknown names
// pass through; an empty name becomes DefaultModel.
func Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultModel
	}
	if canonical, ok := modelAliases[name]; ok {
		return canonical
	}
	return name
}
