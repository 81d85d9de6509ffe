package handlers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/petbox/petbox-payments/internal/core/checkout"
)

var registerOnce sync.Once

// RegisterValidators adds the "cpf" and "cnpj" tags to gin's validator.
func RegisterValidators() error {
	var err error
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			err = fmt.Errorf("unexpected binding engine %T", binding.Validator.Engine())
			return
		}
		if err = v.RegisterValidation("cpf", func(fl validator.FieldLevel) bool {
			return checkout.ValidCPF(fl.Field().String())
		}); err != nil {
			return
		}
		err = v.RegisterValidation("cnpj", func(fl validator.FieldLevel) bool {
			return checkout.ValidCNPJ(fl.Field().String())
		})
	})
	return err
}
