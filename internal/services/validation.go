package services

import (
	"strings"
	"unicode/utf8"
)

const maxTitleLength = 255

func validateTitle(field, title string) error {
	if strings.TrimSpace(title) == "" {
		return &ValidationError{Field: field, Reason: "must not be blank"}
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return &ValidationError{Field: field, Reason: "must be at most 255 characters"}
	}
	return nil
}

func validateID(field string, id int64) error {
	if id <= 0 {
		return &ValidationError{Field: field, Reason: "must be a positive integer"}
	}
	return nil
}
