// internal/marketplace/opportunities/validation.go
package opportunities

import (
	"strings"

	marketerrors "talent-marketplace/internal/common/errors"

	"github.com/xeipuuv/gojsonschema"
)

// applySchema validates the apply payload before any guard runs. The
// cover letter ceiling matches the form-side limit.
const applySchema = `{
	"type": "object",
	"required": ["opportunityId", "coverLetter"],
	"properties": {
		"opportunityId": {"type": "string", "minLength": 1},
		"coverLetter": {"type": "string", "minLength": 1, "maxLength": 4000}
	}
}`

var applySchemaLoader = gojsonschema.NewStringLoader(applySchema)

func validateApplyPayload(opportunityID, coverLetter string) error {
	payload := map[string]interface{}{
		"opportunityId": opportunityID,
		"coverLetter":   coverLetter,
	}

	result, err := gojsonschema.Validate(applySchemaLoader, gojsonschema.NewGoLoader(payload))
	if err != nil {
		return marketerrors.NewApplicationValidationError(err.Error())
	}
	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			details = append(details, e.String())
		}
		return marketerrors.NewApplicationValidationError(strings.Join(details, "; "))
	}
	return nil
}
