// Package validator extends validator.Validate with regex and lock stack validations.
package validator

import (
	"log"
	"reflect"
	"regexp"

	"github.com/go-playground/validator/v10"
)

// LockLayers lists the lock stack layers from outermost to innermost.
var LockLayers = []string{"reentrant", "keyed", "rw", "mutex"}

// Validate is a custom validator that extends the base validator.Validate.
type Validate struct {
	*validator.Validate
}

// New creates a new instance of Validate
func New() *Validate {
	validate := &Validate{
		Validate: validator.New(),
	}

	if err := validate.RegisterValidation("regex", validateRegex); err != nil {
		log.Fatalf("failed to register regex validator: %s", err)
	}
	if err := validate.RegisterValidation("lockstack", validateLockStack); err != nil {
		log.Fatalf("failed to register lockstack validator: %s", err)
	}

	return validate
}

// validateRegex is the custom validation function that checks if the field value
// matches the provided regular expression.
func validateRegex(fl validator.FieldLevel) bool {
	field := fl.Field()
	regexTag := fl.Param()

	regex := regexp.MustCompile(regexTag)

	return regex.MatchString(field.String())
}

func validateLockStack(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() != reflect.Slice {
		return false
	}
	layers := make([]string, field.Len())
	for i := range layers {
		elem := field.Index(i)
		if elem.Kind() != reflect.String {
			return false
		}
		layers[i] = elem.String()
	}
	return ValidStack(layers)
}

// ValidStack reports whether layers, outermost first, is an ordered
// subsequence of LockLayers without repetition that ends with "mutex".
func ValidStack(layers []string) bool {
	if len(layers) == 0 || layers[len(layers)-1] != "mutex" {
		return false
	}
	next := 0
	for _, layer := range layers {
		for next < len(LockLayers) && LockLayers[next] != layer {
			next++
		}
		if next == len(LockLayers) {
			return false
		}
		next++
	}
	return true
}
