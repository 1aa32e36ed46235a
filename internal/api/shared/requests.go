package shared

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// validate is shared across requests; the validator caches struct metadata.
var validate = validator.New()

// DecodeJSON decodes the request body into v. Unknown fields are rejected so
// client typos surface as errors instead of silently dropped settings.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// ValidateRequest checks v against its validate struct tags.
func ValidateRequest(v interface{}) error {
	return validate.Struct(v)
}
