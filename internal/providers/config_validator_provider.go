package providers

import (
	"fmt"

	"datasync/internal/structures"
	"github.com/gookit/validate"
)

type CnfValidator struct {
	conf *structures.Config
}

func NewCnfValidator(conf *structures.Config) *CnfValidator {
	return &CnfValidator{conf: conf}
}

func (cv *CnfValidator) Validate() error {
	v := validate.Struct(cv.conf)
	if !v.Validate() {
		return fmt.Errorf("invalid configuration: %w", v.Errors)
	}
	if cv.conf.Storage.Lock && cv.conf.Storage.LockTTL <= 0 {
		return fmt.Errorf("invalid configuration: storage.lockTTL must be positive when storage.lock is enabled")
	}
	return nil
}
