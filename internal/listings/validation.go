package listings

import (
	"slices"

	"github.com/go-playground/validator/v10"

	"github.com/technopolis/careers-portal/internal/shared"
)

// NewValidator returns the shared validator with the posting form rules.
func NewValidator() *validator.Validate {
	v := shared.NewValidator()
	_ = v.RegisterValidation("work_location", func(fl validator.FieldLevel) bool {
		return slices.Contains(WorkLocations, fl.Field().String())
	})
	_ = v.RegisterValidation("specialty", func(fl validator.FieldLevel) bool {
		return slices.Contains(Specialties, fl.Field().String())
	})
	_ = v.RegisterValidation("salary", func(fl validator.FieldLevel) bool {
		_, err := ParseSalary(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the draft and returns input name → message.
func Validate(v *validator.Validate, d Draft) map[string]string {
	errs := map[string]string{}
	if err := v.Struct(d); err != nil {
		errs = shared.FieldErrors(err)
		if _, ok := errs["agree_personal_data"]; ok {
			errs["agree_personal_data"] = "Необходимо согласие на обработку персональных данных"
		}
		if _, ok := errs["salary_min"]; ok {
			errs["salary_min"] = "Введите число"
		}
		if _, ok := errs["salary_max"]; ok {
			errs["salary_max"] = "Введите число"
		}
	}
	if _, bad := errs["salary_max"]; !bad {
		min, _ := ParseSalary(d.SalaryMin)
		max, _ := ParseSalary(d.SalaryMax)
		if min != nil && max != nil && *max < *min {
			errs["salary_max"] = "Верхняя граница меньше нижней"
		}
	}
	return errs
}
