// pkg/categories/loader.go
package categories

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// registrySchema validates an external registry file: a flat object of
// category name to non-empty keyword arrays.
const registrySchema = `{
	"type": "object",
	"minProperties": 1,
	"additionalProperties": {
		"type": "array",
		"minItems": 1,
		"items": {"type": "string", "minLength": 1}
	}
}`

// Load reads a registry from a JSON file, validating it against the
// registry schema before use. Deployments that curate their own keyword
// lists override the built-in Default this way.
func Load(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read category registry: %w", err)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(registrySchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate category registry: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid category registry: %v", result.Errors())
	}

	var reg Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("parse category registry: %w", err)
	}

	// Match compares against lowercased titles and skills, so keywords
	// must be lowercase too. Normalize here rather than trusting the file.
	normalized := make(Registry, len(reg))
	for name, keywords := range reg {
		lowered := make([]string, len(keywords))
		for i, kw := range keywords {
			lowered[i] = strings.ToLower(strings.TrimSpace(kw))
		}
		normalized[strings.ToLower(strings.TrimSpace(name))] = lowered
	}
	return normalized, nil
}
