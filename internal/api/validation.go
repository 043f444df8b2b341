package api

import (
	"sync"
	"time"

	"resort/internal/models"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var registerOnce sync.Once

// registerValidators adds the ymd tag to gin's validator.
func registerValidators() {
	registerOnce.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("ymd", validateYMD)
		}
	})
}

func validateYMD(fl validator.FieldLevel) bool {
	s := fl.Field().String()
	if s == "" {
		return true
	}
	_, err := time.Parse(models.DateLayout, s)
	return err == nil
}

// parseDate parses a field that already passed ymd validation. Empty yields nil.
func parseDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := models.ParseDate(s)
	if err != nil {
		return nil
	}
	return &t
}

func mustDate(s string) time.Time {
	if t := parseDate(s); t != nil {
		return *t
	}
	return time.Time{}
}
