package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	apperrors "payment-reminders/internal/common/errors"
	"payment-reminders/internal/models"
)

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func template(subjectRequired bool) map[string]interface{} {
	required := []interface{}{"body"}
	if subjectRequired {
		required = append(required, "subject")
	}
	return map[string]interface{}{
		"type":     "object",
		"required": required,
		"properties": map[string]interface{}{
			"subject": map[string]interface{}{"type": "string", "minLength": 1},
			"body":    map[string]interface{}{"type": "string", "minLength": 1},
		},
	}
}

func templatesFor(subjectRequired bool) map[string]interface{} {
	return map[string]interface{}{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]interface{}{
			string(models.TypeDueReminder):     template(subjectRequired),
			string(models.TypeOverdueReminder): template(subjectRequired),
		},
	}
}

var channelSettings = map[string]interface{}{
	"type":     "object",
	"required": []interface{}{"enabled"},
	"properties": map[string]interface{}{
		"enabled": map[string]interface{}{"type": "boolean"},
	},
}

// settingsSchema mirrors models.NotificationSettings' JSON form.
var settingsSchema = map[string]interface{}{
	"$schema":  "http://json-schema.org/draft-07/schema#",
	"type":     "object",
	"required": []interface{}{"dueReminderDays", "maxOverdueReminders", "channels", "templates"},
	"properties": map[string]interface{}{
		"dueReminderDays":     map[string]interface{}{"type": "integer", "minimum": 0, "maximum": 365},
		"maxOverdueReminders": map[string]interface{}{"type": "integer", "minimum": 1},
		"channels": map[string]interface{}{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]interface{}{
				string(models.ChannelEmail):    channelSettings,
				string(models.ChannelWhatsApp): channelSettings,
			},
		},
		"templates": map[string]interface{}{
			"type":                 "object",
			"additionalProperties": false,
			"properties": map[string]interface{}{
				string(models.ChannelEmail):    templatesFor(true),
				string(models.ChannelWhatsApp): templatesFor(false),
			},
		},
	},
}

var settingsLoader = gojsonschema.NewGoLoader(settingsSchema)

// ValidateSettings checks settings against the settings schema, plus the
// cross-field rule that every enabled channel has both templates.
func ValidateSettings(s *models.NotificationSettings) *ValidationResult {
	if s == nil {
		return &ValidationResult{Errors: []ValidationError{{Field: "(root)", Message: "settings are required", Code: "required"}}}
	}

	var errs []ValidationError

	result, err := gojsonschema.Validate(settingsLoader, gojsonschema.NewGoLoader(s))
	if err != nil {
		errs = append(errs, ValidationError{Field: "(root)", Message: err.Error(), Code: "schema_error"})
	} else {
		for _, desc := range result.Errors() {
			errs = append(errs, ValidationError{
				Field:   desc.Field(),
				Message: desc.Description(),
				Code:    desc.Type(),
			})
		}
	}

	for _, c := range s.EnabledChannels() {
		for _, t := range []models.NotificationType{models.TypeDueReminder, models.TypeOverdueReminder} {
			if _, ok := s.Template(c, t); !ok {
				errs = append(errs, ValidationError{
					Field:   fmt.Sprintf("templates.%s.%s", c, t),
					Message: "enabled channel has no template",
					Code:    "required",
				})
			}
		}
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Err converts a failed result into an INVALID_SETTINGS error.
func (vr *ValidationResult) Err() error {
	if vr == nil || vr.Valid {
		return nil
	}
	return apperrors.NewInvalidSettingsError(strings.Join(vr.GetErrorMessages(), "; "))
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			return true
		}
	}
	return false
}
