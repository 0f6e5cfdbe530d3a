package leads

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	maxNameLen       = 100
	maxMessageLen    = 2000
	maxWhereFoundLen = 100
	minPhoneLen      = 7
	maxPhoneLen      = 20
)

var (
	namePattern  = regexp.MustCompile(`^[A-Za-z\s\-'.]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9\-() ]+$`)
)

// Validate checks a raw submission and returns the normalized lead.
// Rules run in field order and the first failure wins.
func Validate(req CreateLeadRequest) (NormalizedLead, error) {
	name := strings.TrimSpace(req.Name)
	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	message := strings.TrimSpace(req.Message)
	whereFound := strings.TrimSpace(req.WhereFound)
	method := ContactMethod(strings.ToLower(strings.TrimSpace(req.ContactMethod)))

	switch {
	case name == "":
		return NormalizedLead{}, fieldError("name", "Name is required")
	case !namePattern.MatchString(name):
		return NormalizedLead{}, fieldError("name", "Name can only contain letters, spaces, hyphens, apostrophes, and periods")
	case utf8.RuneCountInString(name) > maxNameLen:
		return NormalizedLead{}, fieldError("name", "Name must be less than 100 characters")
	}

	if email == "" && method == MethodEmail {
		return NormalizedLead{}, fieldError("email", "Email is required when contacting us by email")
	}
	if email != "" {
		addr, err := mail.ParseAddress(email)
		if err != nil || addr.Address != email {
			return NormalizedLead{}, fieldError("email", "Invalid email address")
		}
	}

	if phone != "" {
		if n := utf8.RuneCountInString(phone); n < minPhoneLen || n > maxPhoneLen {
			return NormalizedLead{}, fieldError("phone", "Phone number must be between 7 and 20 characters")
		}
		if !phonePattern.MatchString(phone) {
			return NormalizedLead{}, fieldError("phone", "Invalid phone number format")
		}
	}

	switch {
	case message == "":
		return NormalizedLead{}, fieldError("message", "Message is required")
	case utf8.RuneCountInString(message) > maxMessageLen:
		return NormalizedLead{}, fieldError("message", "Message must be less than 2000 characters")
	}

	if utf8.RuneCountInString(whereFound) > maxWhereFoundLen {
		return NormalizedLead{}, fieldError("where_did_you_find_us", "Source must be less than 100 characters")
	}

	if !method.Valid() {
		return NormalizedLead{}, fieldError("contact_method", "Please choose a valid contact method")
	}

	return NormalizedLead{
		Name:          truncateRunes(name, maxNameLen),
		Email:         email,
		Phone:         phone,
		Message:       message,
		WhereFound:    whereFound,
		ContactMethod: method,
	}, nil
}

// Request converts a normalized lead back into request form.
func (n NormalizedLead) Request() CreateLeadRequest {
	return CreateLeadRequest{
		Name:          n.Name,
		Email:         n.Email,
		Phone:         n.Phone,
		Message:       n.Message,
		WhereFound:    n.WhereFound,
		ContactMethod: string(n.ContactMethod),
	}
}

func fieldError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
