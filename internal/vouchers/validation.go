package vouchers

import (
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the "vouchercode" tag to gin's validator. It panics
// when the tag cannot be registered, since every voucher route depends on it.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic(fmt.Sprintf("vouchers: unexpected validator engine %T", binding.Validator.Engine()))
		}
		err := v.RegisterValidation("vouchercode", func(fl validator.FieldLevel) bool {
			return codePattern.MatchString(NormalizeCode(fl.Field().String()))
		})
		if err != nil {
			panic(fmt.Sprintf("vouchers: register vouchercode validator: %v", err))
		}
	})
}
