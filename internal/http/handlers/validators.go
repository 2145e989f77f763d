package handlers

import (
	"reflect"
	"strings"
	"sync"

	"github.com/geocoder89/taskdeck/internal/domain/task"
	"github.com/geocoder89/taskdeck/internal/security"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// RegisterValidators adds the task enum and password length rules to gin's validator and makes it
// report JSON field names. Safe to call more than once.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}

		v.RegisterTagNameFunc(jsonTagName)

		_ = v.RegisterValidation("bcrypt_len", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= security.MaxPasswordBytes
		})
		_ = v.RegisterValidation("task_status", func(fl validator.FieldLevel) bool {
			return task.Status(fl.Field().String()).IsValid()
		})
		_ = v.RegisterValidation("task_priority", func(fl validator.FieldLevel) bool {
			return task.Priority(fl.Field().String()).IsValid()
		})
	})
}

func jsonTagName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return sf.Name
	}
	return name
}
