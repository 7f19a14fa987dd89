package formula

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/opencontainers/go-digest"
	"go.trai.ch/keg/internal/core/domain"
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	// Registration only fails for empty tags or nil functions.
	_ = v.RegisterValidation("pkgname", func(fl validator.FieldLevel) bool {
		return domain.ValidatePackageName(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("pkgversion", func(fl validator.FieldLevel) bool {
		_, err := domain.ParseVersion(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("digest", func(fl validator.FieldLevel) bool {
		_, err := digest.Parse(fl.Field().String())
		return err == nil
	})
	return v
}

// describeValidation returns the offending field path (e.g.
// "versions[0].hash") and a short message for the first violation in err.
func describeValidation(err error) (field, msg string) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "", err.Error()
	}
	fe := verrs[0]
	field = fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}

	switch fe.Tag() {
	case "required":
		msg = "missing required field"
	case "min":
		msg = fmt.Sprintf("needs at least %s entries", fe.Param())
	case "pkgname":
		msg = fmt.Sprintf("invalid package name %q", fe.Value())
	case "pkgversion":
		msg = fmt.Sprintf("invalid version %q", fe.Value())
	case "digest":
		msg = fmt.Sprintf("invalid digest %q, expected <algorithm>:<hex>", fe.Value())
	default:
		msg = fmt.Sprintf("failed %q validation", fe.Tag())
	}
	return field, msg
}
