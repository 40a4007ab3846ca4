package utils

import (
	"errors"
	"strings"

	"freelance-hub/backend/apperror"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// ValidateStruct 依 `validate` tag 檢查請求，失敗時回傳 apperror.Validation
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return apperror.Validation("invalid request")
	}

	var messages []string
	for _, fe := range validationErrors {
		field := lowerFirst(fe.Field())
		param := fe.Param()

		switch fe.Tag() {
		case "required":
			messages = append(messages, field+" is required")
		case "min":
			messages = append(messages, field+" must be at least "+param+" characters")
		case "max":
			messages = append(messages, field+" must be at most "+param+" characters")
		case "oneof":
			messages = append(messages, field+" must be one of: "+strings.ReplaceAll(param, " ", ", "))
		default:
			messages = append(messages, field+" is invalid")
		}
	}
	return apperror.Validation("%s", strings.Join(messages, ", "))
}

// RoomID -> roomId，與 JSON 欄位名稱一致
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	if strings.HasSuffix(s, "ID") {
		s = strings.TrimSuffix(s, "ID") + "Id"
	}
	return strings.ToLower(s[:1]) + s[1:]
}
