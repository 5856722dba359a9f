// Package util holds small input helpers shared by the services and handlers.
package util

import (
	"errors"
	"sort"
	"strings"

	"confhub/internal/common"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ValidateEmail reports whether email is a non-empty, well-formed address.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	return email != "" && is.Email.Validate(email) == nil
}

// ParseObjectID parses a hex id from a path or payload. A malformed id is a
// validation error on the "id" field.
func ParseObjectID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(hex))
	if err != nil {
		return primitive.NilObjectID, common.NewValidationError("id", "invalid id")
	}
	return id, nil
}

// ValidationFields converts an ozzo-validation result into a
// *common.ValidationError keyed by json field name. Nested struct errors are
// flattened with dotted keys. Rule failures that are not validation errors
// come back as internal errors.
func ValidationFields(err error) error {
	if err == nil {
		return nil
	}
	var ie validation.InternalError
	if errors.As(err, &ie) {
		return common.Internal("validate", ie.InternalError())
	}
	var es validation.Errors
	if !errors.As(err, &es) {
		return common.NewValidationError("value", err.Error())
	}
	fields := map[string]string{}
	flatten("", es, fields)
	return &common.ValidationError{Fields: fields}
}

func flatten(prefix string, es validation.Errors, out map[string]string) {
	keys := make([]string, 0, len(es))
	for k := range es {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		name := k
		if prefix != "" {
			name = prefix + "." + k
		}
		if nested, ok := es[k].(validation.Errors); ok {
			flatten(name, nested, out)
			continue
		}
		out[name] = es[k].Error()
	}
}
