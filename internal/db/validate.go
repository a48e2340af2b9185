package db

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/newsdesk/internal/types"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// FieldError describes one rejected article field.
type FieldError struct {
	Field string
	Tag   string
	Param string
	Value any
}

func (f FieldError) String() string {
	if f.Param != "" {
		return fmt.Sprintf("%s (%s=%s)", f.Field, f.Tag, f.Param)
	}
	return fmt.Sprintf("%s (%s)", f.Field, f.Tag)
}

// ValidationError is returned when an article fails the store's field rules.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.String()
	}
	return "article failed validation: " + strings.Join(parts, "; ")
}

// ValidateArticle checks article against its struct tags.
func ValidateArticle(article *types.Article) error {
	if article == nil {
		return &ValidationError{Fields: []FieldError{{Field: "article", Tag: "required"}}}
	}

	err := validate.Struct(article)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate article: %w", err)
	}

	fields := make([]FieldError, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{
			Field: fieldName(fe.Namespace()),
			Tag:   fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
	}
	return &ValidationError{Fields: fields}
}

// fieldName turns "Article.tags[0]" into "tags[0]".
func fieldName(namespace string) string {
	if idx := strings.Index(namespace, "."); idx >= 0 {
		return namespace[idx+1:]
	}
	return namespace
}
