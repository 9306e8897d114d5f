package model

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	roleTag  = "role"
	roleText = "{0} must be one of: " + strings.Join(AllowedRoles, ", ")

	requiredText = "{0} is required"
	eqFieldText  = "{0} must match {1}"
)

func init() {
	validate = validator.New(validator.WithRequiredStructEnabled())

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Field errors are reported under their JSON names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		return IsAllowedRole(fl.Field().String())
	})
	registerTranslation(roleTag, roleText)
	registerTranslation("required", requiredText)
	registerTranslation("eqfield", eqFieldText)
}

func registerTranslation(tag string, text string) {
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, true) },
		func(t ut.Translator, fe validator.FieldError) string {
			param := fe.Param()
			if field, ok := jsonNameOf(fe); ok {
				param = field
			}
			s, _ := t.T(tag, fe.Field(), param)
			return s
		},
	)
}

// jsonNameOf resolves the JSON name of the field an eqfield rule points at.
func jsonNameOf(fe validator.FieldError) (string, bool) {
	if fe.Tag() != "eqfield" {
		return "", false
	}
	name := fe.Param()
	if name == "" {
		return "", false
	}
	return strings.ToLower(name[:1]) + name[1:], true
}

// Validate checks a request schema and returns the field-level failures keyed by JSON name.
// A nil map means the value is valid.
func Validate(v any) (map[string]string, error) {
	err := validate.Struct(v)
	if err == nil {
		return nil, nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return nil, err
	}

	fields := make(map[string]string, len(fieldErrs))
	for _, fe := range fieldErrs {
		if _, seen := fields[fe.Field()]; seen {
			continue
		}
		fields[fe.Field()] = fe.Translate(translator)
	}
	return fields, nil
}
