package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// FieldError points at one offending input field, named the way the client
// sent it (json key or form field).
type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message,omitempty"`
}

// BindErrorDetails is the "details" object of a 400 produced by Bind.
type BindErrorDetails struct {
	// json or form
	Source string       `json:"source"`
	Reason string       `json:"reason"`
	Fields []FieldError `json:"fields,omitempty"`
}

const (
	reasonValidation = "validation"
	reasonSyntax     = "invalid_syntax"
	reasonType       = "invalid_type"
	reasonMalformed  = "malformed"
)

// Bind decodes a JSON or form-encoded body into out, chosen by Content-Type;
// the board's HTML forms post urlencoded bodies, API clients post JSON. On
// failure it writes the error response and returns false.
func Bind(ctx *gin.Context, out any) bool {
	b := binding.Default(ctx.Request.Method, ctx.ContentType())

	err := ctx.ShouldBindWith(out, b)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		RespondError(ctx, http.StatusRequestEntityTooLarge, "body_too_large", "Request body too large", nil)
		return false
	}

	source := "form"
	if b == binding.JSON {
		source = "json"
	}

	RespondBadRequest(ctx, "Invalid request body", describeBindError(err, out, source))
	return false
}

func describeBindError(err error, out any, source string) BindErrorDetails {
	details := BindErrorDetails{Source: source, Reason: reasonMalformed}

	var invalid validator.ValidationErrors
	var syntax *json.SyntaxError
	var wrongType *json.UnmarshalTypeError
	var badNumber *strconv.NumError

	switch {
	case errors.As(err, &invalid):
		details.Reason = reasonValidation
		for _, fe := range invalid {
			details.Fields = append(details.Fields, FieldError{
				Field:   wireName(out, fe.StructField(), source),
				Rule:    fe.Tag(),
				Message: ruleMessage(fe.Tag(), fe.Param()),
			})
		}

	case errors.As(err, &syntax):
		details.Reason = reasonSyntax

	case errors.As(err, &wrongType):
		details.Reason = reasonType
		details.Fields = []FieldError{{
			Field:   wrongType.Field,
			Rule:    "type",
			Message: "must be " + typeNoun(wrongType.Type),
		}}

	case errors.As(err, &badNumber):
		// gin does not say which form field failed; the numeric one is the id
		details.Reason = reasonType
		details.Fields = []FieldError{{
			Field:   numericFieldName(out, source),
			Rule:    "type",
			Message: "must be an integer",
		}}
	}

	return details
}

// wireName maps a Go field name to its json or form tag on the request struct.
func wireName(out any, goField, source string) string {
	t := reflect.TypeOf(out)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return goField
	}

	sf, ok := t.FieldByName(goField)
	if !ok {
		return goField
	}

	name, _, _ := strings.Cut(sf.Tag.Get(source), ",")
	if name == "" || name == "-" {
		return goField
	}
	return name
}

// numericFieldName finds the first integer field of the request struct.
func numericFieldName(out any, source string) string {
	t := reflect.TypeOf(out)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return ""
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		switch sf.Type.Kind() {
		case reflect.Int, reflect.Int32, reflect.Int64:
			return wireName(out, sf.Name, source)
		}
	}
	return ""
}

func typeNoun(t reflect.Type) string {
	if t == nil {
		return "a different type"
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int64:
		return "an integer"
	case reflect.String:
		return "a string"
	default:
		return "of type " + t.String()
	}
}

func ruleMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	default:
		return "failed " + rule + " validation"
	}
}
