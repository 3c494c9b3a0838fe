package drinks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ErrInvalid marks a request body that cannot describe a drink.
var ErrInvalid = errors.New("invalid drink")

// Input is a create or patch request. Nil fields are left unchanged on patch.
type Input struct {
	Title  *string `json:"title" yaml:"title"`
	Recipe Recipe  `json:"recipe" yaml:"recipe"`
}

// ValidateCreate requires both a title and a non-empty recipe.
func (in Input) ValidateCreate() error {
	if in.Title == nil {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if in.Recipe == nil {
		return fmt.Errorf("%w: recipe is required", ErrInvalid)
	}
	return in.validateFields()
}

// ValidatePatch requires at least one field.
func (in Input) ValidatePatch() error {
	if in.Title == nil && in.Recipe == nil {
		return fmt.Errorf("%w: nothing to update", ErrInvalid)
	}
	return in.validateFields()
}

func (in Input) validateFields() error {
	if in.Title != nil {
		if err := validate.Var(strings.TrimSpace(*in.Title), "required,max=80"); err != nil {
			return fmt.Errorf("%w: title: %s", ErrInvalid, describe(err))
		}
	}
	if in.Recipe != nil {
		if len(in.Recipe) == 0 {
			return fmt.Errorf("%w: recipe needs at least one ingredient", ErrInvalid)
		}
		for i, ing := range in.Recipe {
			if err := validate.Struct(ing); err != nil {
				return fmt.Errorf("%w: recipe[%d]: %s", ErrInvalid, i, describe(err))
			}
		}
	}
	return nil
}

func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := strings.ToLower(fe.Field())
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s fails %s=%s", name, fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s fails %s", name, fe.Tag()))
		}
	}
	return strings.Join(parts, ", ")
}
