// internal/common/validation/subscription.go
package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// subscriptionSchema describes the standard Web Push subscription
// descriptor browsers produce from pushManager.subscribe.
var subscriptionSchema = map[string]interface{}{
	"type":                 "object",
	"required":             []interface{}{"endpoint", "keys"},
	"additionalProperties": true,
	"properties": map[string]interface{}{
		"endpoint": map[string]interface{}{
			"type":    "string",
			"format":  "uri",
			"pattern": "^https://",
		},
		"keys": map[string]interface{}{
			"type":     "object",
			"required": []interface{}{"p256dh", "auth"},
			"properties": map[string]interface{}{
				"p256dh": map[string]interface{}{"type": "string", "minLength": 1},
				"auth":   map[string]interface{}{"type": "string", "minLength": 1},
			},
		},
	},
}

// ValidateSubscription checks a raw JSON subscription document against
// the Web Push descriptor schema and returns a readable error listing
// every violation.
func ValidateSubscription(document []byte) error {
	schemaLoader := gojsonschema.NewGoLoader(subscriptionSchema)
	documentLoader := gojsonschema.NewBytesLoader(document)

	result, err := gojsonschema.Validate(schemaLoader, documentLoader)
	if err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	if !result.Valid() {
		errs := make([]string, len(result.Errors()))
		for i, desc := range result.Errors() {
			errs[i] = desc.String()
		}
		return fmt.Errorf("subscription validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}
