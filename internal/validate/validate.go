// Package validate wraps go-playground/validator/v10 (grounded in
// liteclaw's internal/gateway.CustomValidator) with a custom "cronid"
// tag for the job id grammar, so CLI-facing structs can
// lean on struct tags for the mechanical checks (required fields)
// while the id's character-class rule — too
// specific for a built-in tag — is enforced by internal/jobspec.ValidateID
// through the same validator instance.
package validate

import (
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/cronburgundy/cronburgundy/internal/jobspec"
)

var (
	once sync.Once
	inst *validator.Validate
)

// Instance returns the process-wide validator, registering the "cronid"
// custom tag on first use.
func Instance() *validator.Validate {
	once.Do(func() {
		inst = validator.New()
		_ = inst.RegisterValidation("cronid", func(fl validator.FieldLevel) bool {
			return jobspec.ValidateID(fl.Field().String()) == nil
		})
	})
	return inst
}

// Struct validates i's struct tags using the shared validator instance.
func Struct(i any) error {
	return Instance().Struct(i)
}
