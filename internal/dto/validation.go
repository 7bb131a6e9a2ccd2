package dto

import (
	"regexp"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Matriculas are alphanumeric institutional ids, no spaces or symbols.
// Five character ids are legacy staff accounts.
var matriculaPattern = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)

// RegisterValidations installs the custom binding rules used by the request
// payloads. Call once at startup before serving.
func RegisterValidations() {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return
	}
	_ = v.RegisterValidation("matricula", func(fl validator.FieldLevel) bool {
		return matriculaPattern.MatchString(fl.Field().String())
	})
}
