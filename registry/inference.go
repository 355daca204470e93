// Package registry implements online schema discovery over heterogeneous
// trip documents: it walks every ingested document, infers field data types,
// tracks corpus-wide occurrence statistics, and classifies fields by
// stability so indexing and validation decisions can be made without a
// hand-written schema.
package registry

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// DataType classifies a discovered field.
type DataType string

const (
	TypeString           DataType = "string"
	TypeNumber           DataType = "number"
	TypeBoolean          DataType = "boolean"
	TypeArray            DataType = "array"
	TypeObject           DataType = "object"
	TypeDate             DataType = "date"
	TypeDateTime         DataType = "datetime"
	TypeEmail            DataType = "email"
	TypePhone            DataType = "phone"
	TypeCurrency         DataType = "currency"
	TypeAirportCode      DataType = "airport_code"
	TypeConfirmationCode DataType = "confirmation_code"
	TypeUnknown          DataType = "unknown"
)

// inferenceRule couples a predicate with the type and confidence it yields.
type inferenceRule struct {
	dataType   DataType
	confidence float64
	match      func(string) bool
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{3}-\d{3}-\d{4}$`),
		regexp.MustCompile(`^\(\d{3}\)\s*\d{3}-\d{4}$`),
		regexp.MustCompile(`^\d{3}\.\d{3}\.\d{4}$`),
		regexp.MustCompile(`^\+\d{1,3}\s*\d{3,4}\s*\d{3,4}\s*\d{3,4}$`),
	}

	// Each pattern captures the amount; the amount itself is validated by
	// the decimal parser, not the regex.
	currencyPatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\$(.+)$`),
		regexp.MustCompile(`(?i)^(.+?)\s*(?:USD|EUR|GBP|CAD)$`),
		regexp.MustCompile(`^(\d+(?:\.\d+)?)$`),
	}

	datePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}$`),
		regexp.MustCompile(`^\d{1,2}-\d{1,2}-\d{4}$`),
		regexp.MustCompile(`^[A-Za-z]{3,9}\s+\d{1,2},?\s+\d{4}$`),
	}

	// Prefix-anchored: a trailing zone offset or fractional seconds still
	// counts as a datetime.
	datetimePatterns = []*regexp.Regexp{
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`^\d{4}-\d{2}-\d{2}\s+\d{2}:\d{2}:\d{2}`),
		regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}\s+\d{1,2}:\d{2}`),
	}

)

// scalarRules is the inference cascade for scalar values. Order is the
// contract: the first matching rule wins and nothing backtracks, so a
// currency-shaped decimal is never reclassified as a bare number and an
// airport code is checked before the generic string fallback.
var scalarRules = []inferenceRule{
	{TypeEmail, 0.9, isEmail},
	{TypePhone, 0.8, isPhone},
	{TypeAirportCode, 0.9, isAirportCode},
	{TypeConfirmationCode, 0.7, isConfirmationCode},
	{TypeCurrency, 0.8, isCurrency},
	{TypeDate, 0.8, isDate},
	{TypeDateTime, 0.9, isDateTime},
	{TypeNumber, 0.9, isNumber},
	{TypeBoolean, 0.9, isBoolean},
}

// Infer classifies a JSON-like value, returning the data type and a
// confidence score. Containers classify structurally with confidence 1.0;
// scalars run through the cascade on their string form; anything unmatched
// falls back to string at 0.6. A nil value stays unknown so a later non-nil
// occurrence can classify the field.
func Infer(value any) (DataType, float64) {
	switch value.(type) {
	case nil:
		return TypeUnknown, 0
	case []any:
		return TypeArray, 1.0
	case map[string]any:
		return TypeObject, 1.0
	}

	s := strings.TrimSpace(Stringify(value))
	for _, rule := range scalarRules {
		if rule.match(s) {
			return rule.dataType, rule.confidence
		}
	}
	return TypeString, 0.6
}

// Stringify renders a scalar the way it appears in a JSON document. Floats
// drop their trailing zeros so 5.0 and 5 classify identically.
func Stringify(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func isEmail(s string) bool {
	return emailPattern.MatchString(s)
}

func isPhone(s string) bool {
	for _, pattern := range phonePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func isAirportCode(s string) bool {
	if len(s) != 3 {
		return false
	}
	for _, r := range s {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func isConfirmationCode(s string) bool {
	if len(s) < 4 || len(s) > 8 {
		return false
	}
	var hasLetter, hasDigit bool
	for _, r := range s {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			return false
		}
	}
	return hasLetter && hasDigit
}

func isCurrency(s string) bool {
	for _, pattern := range currencyPatterns {
		m := pattern.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(m[1]))
		if err != nil || amount.IsNegative() {
			return false
		}
		// Monetary amounts carry zero or exactly two decimal places.
		return amount.Exponent() == 0 || amount.Exponent() == -2
	}
	return false
}

func isDate(s string) bool {
	for _, pattern := range datePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func isDateTime(s string) bool {
	for _, pattern := range datetimePatterns {
		if pattern.MatchString(s) {
			return true
		}
	}
	return false
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil
}

func isBoolean(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "1", "0":
		return true
	default:
		return false
	}
}
