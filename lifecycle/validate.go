package lifecycle

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/mosquitoalert/mosquito-alert-api/models"
)

const invalidCoordinates = "Invalid coordinates. Ensure lat is -90..90 and lng is -180..180"

var validate = validator.New()

// ValidateDraft checks a draft before anything is uploaded or written
func ValidateDraft(d models.ReportDraft) error {
	loc := d.Location
	if (loc.Lat == nil) != (loc.Lng == nil) {
		return models.NewValidationError("location", invalidCoordinates)
	}
	if loc.IsEmpty() {
		return models.NewValidationError("location", "Please provide a location: either map coordinates or a textual description (locationText)")
	}

	err := validate.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("failed to validate report: %w", err)
	}

	first := verrs[0]
	ve := &models.ValidationError{Field: fieldName(first)}
	switch ve.Field {
	case "location":
		ve.Message = invalidCoordinates
	case "breedingType", "severity":
		if first.Tag() == "required" {
			ve.Message = "breedingType and severity are required"
		} else {
			ve.Message = fmt.Sprintf("%s must be one of %s", ve.Field, first.Param())
		}
	default:
		ve.Message = fmt.Sprintf("%s failed %s validation", ve.Field, first.Tag())
	}
	for _, fe := range verrs {
		ve.Details = append(ve.Details, fmt.Sprintf("%s: %s", fieldName(fe), fe.Tag()))
	}
	return ve
}

func fieldName(fe validator.FieldError) string {
	ns := fe.StructNamespace()
	switch {
	case strings.HasPrefix(ns, "ReportDraft.Location."):
		return "location"
	case fe.StructField() == "BreedingType":
		return "breedingType"
	case fe.StructField() == "Severity":
		return "severity"
	case fe.StructField() == "Description":
		return "description"
	}
	return strings.ToLower(fe.StructField())
}
