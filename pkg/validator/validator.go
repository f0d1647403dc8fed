package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

type ValidationErrors map[string]string

func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

func (v ValidationErrors) Add(field, message string) {
	v[field] = message
}

var colorRegex = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
var channelNameRegex = regexp.MustCompile(`^[a-z0-9_-]+$`)

func ValidateRegister(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)
	validatePassword(password, errs)

	return errs
}

func ValidateLogin(email, password string) ValidationErrors {
	errs := make(ValidationErrors)

	validateEmail(email, errs)

	if password == "" {
		errs.Add("password", "Password is required")
	}

	return errs
}

func ValidateMask(displayName, color string) ValidationErrors {
	errs := make(ValidationErrors)

	validateDisplayName(displayName, errs)
	validateColor(color, errs)

	return errs
}

// ValidateMaskUpdate checks only the fields present in a partial update.
func ValidateMaskUpdate(displayName, color *string) ValidationErrors {
	errs := make(ValidationErrors)

	if displayName != nil {
		validateDisplayName(*displayName, errs)
	}
	if color != nil {
		validateColor(*color, errs)
	}

	return errs
}

func ValidateRoom(title string) ValidationErrors {
	errs := make(ValidationErrors)

	title = strings.TrimSpace(title)
	if title == "" {
		errs.Add("title", "Room title is required")
	} else if utf8.RuneCountInString(title) > 100 {
		errs.Add("title", "Room title is too long")
	}

	return errs
}

func ValidateServer(name string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Server name is required")
	} else if len(name) < 2 {
		errs.Add("name", "Server name must be at least 2 characters")
	} else if utf8.RuneCountInString(name) > 100 {
		errs.Add("name", "Server name is too long")
	}

	return errs
}

func ValidateChannel(name string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Channel name is required")
	} else if len(name) < 2 {
		errs.Add("name", "Channel name must be at least 2 characters")
	} else if len(name) > 100 {
		errs.Add("name", "Channel name is too long")
	} else if !channelNameRegex.MatchString(name) {
		errs.Add("name", "Channel name can only contain lowercase letters, numbers, _ and -")
	}

	return errs
}

func ValidateRole(name string) ValidationErrors {
	errs := make(ValidationErrors)

	name = strings.TrimSpace(name)
	if name == "" {
		errs.Add("name", "Role name is required")
	} else if utf8.RuneCountInString(name) > 50 {
		errs.Add("name", "Role name is too long")
	}

	return errs
}

func validateDisplayName(displayName string, errs ValidationErrors) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		errs.Add("display_name", "Display name is required")
	} else if utf8.RuneCountInString(displayName) > 32 {
		errs.Add("display_name", "Display name is too long")
	}
}

func validateColor(color string, errs ValidationErrors) {
	if color == "" {
		errs.Add("color", "Color is required")
	} else if !colorRegex.MatchString(color) {
		errs.Add("color", "Color must be a hex value like #a1b2c3")
	}
}

func validateEmail(email string, errs ValidationErrors) {
	email = strings.TrimSpace(email)
	if email == "" {
		errs.Add("email", "Email is required")
	} else if _, err := mail.ParseAddress(email); err != nil {
		errs.Add("email", "Invalid email address")
	}
}

func validatePassword(password string, errs ValidationErrors) {
	if len(password) < 8 {
		errs.Add("password", "Password must be at least 8 characters")
		return
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	missing := []string{}
	if !hasUpper {
		missing = append(missing, "one uppercase letter")
	}
	if !hasLower {
		missing = append(missing, "one lowercase letter")
	}
	if !hasDigit {
		missing = append(missing, "one number")
	}

	if len(missing) > 0 {
		errs.Add("password", fmt.Sprintf("Password must contain at least %s", strings.Join(missing, ", ")))
	}
}
