package handlers

import (
	"regexp"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/thanhnp/record-ledger/internal/config"
)

// PayloadValidator checks a request body before it is appended
type PayloadValidator func(body []byte) error

// VitalsPayload is the shape required of health ledger entries
type VitalsPayload struct {
	HeartRate     *int     `json:"heart_rate" binding:"required,min=40,max=200"`
	BloodPressure string   `json:"blood_pressure" binding:"required,bloodpressure"`
	Temperature   *float64 `json:"temperature" binding:"required,min=35,max=42"`
}

var bloodPressurePattern = regexp.MustCompile(`^\d{1,3}/\d{1,3}$`)

var (
	registerOnce sync.Once
	registerErr  error
)

// registerVitalsRules adds the bloodpressure tag to gin's validator engine
func registerVitalsRules() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		registerErr = v.RegisterValidation("bloodpressure", func(fl validator.FieldLevel) bool {
			return bloodPressurePattern.MatchString(fl.Field().String())
		})
	})
	return registerErr
}

// ValidateVitals binds body to VitalsPayload and checks its ranges
func ValidateVitals(body []byte) error {
	if err := registerVitalsRules(); err != nil {
		return err
	}
	var v VitalsPayload
	return binding.JSON.BindBody(body, &v)
}

// ValidatorFor returns the validator for a configured schema name, or nil
func ValidatorFor(schema string) PayloadValidator {
	switch schema {
	case config.SchemaVitals:
		return ValidateVitals
	default:
		return nil
	}
}
