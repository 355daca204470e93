package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInfer_ScalarCascade(t *testing.T) {
	tests := []struct {
		name           string
		value          any
		wantType       DataType
		wantConfidence float64
	}{
		{"email", "traveler@example.com", TypeEmail, 0.9},
		{"email with plus", "ops+travel@example.co.uk", TypeEmail, 0.9},
		{"phone dashed", "555-123-4567", TypePhone, 0.8},
		{"phone parens", "(555) 123-4567", TypePhone, 0.8},
		{"phone dotted", "555.123.4567", TypePhone, 0.8},
		{"phone international", "+1 555 123 4567", TypePhone, 0.8},
		{"airport code", "SFO", TypeAirportCode, 0.9},
		{"airport code lowercase is not one", "sfo", TypeString, 0.6},
		{"confirmation code", "ABC123", TypeConfirmationCode, 0.7},
		{"flight number is confirmation shaped", "SW1234", TypeConfirmationCode, 0.7},
		{"letters only is not confirmation", "ABCDEF", TypeString, 0.6},
		{"currency dollar sign", "$123.45", TypeCurrency, 0.8},
		{"currency with code", "123.45 USD", TypeCurrency, 0.8},
		{"currency lowercase code", "99 eur", TypeCurrency, 0.8},
		{"bare two-decimal amount", "123.45", TypeCurrency, 0.8},
		{"bare integer is currency shaped", "42", TypeCurrency, 0.8},
		{"dollar with three decimals is not currency", "$12.345", TypeString, 0.6},
		{"dollar with thousands separator is not currency", "$1,200.00", TypeString, 0.6},
		{"negative dollar is not currency", "$-5", TypeString, 0.6},
		{"iso date", "2024-03-15", TypeDate, 0.8},
		{"us date", "3/15/2024", TypeDate, 0.8},
		{"long date", "March 15, 2024", TypeDate, 0.8},
		{"iso datetime", "2024-03-15T10:30:00Z", TypeDateTime, 0.9},
		{"space datetime", "2024-03-15 10:30:00", TypeDateTime, 0.9},
		{"three decimals is a number", "3.14159", TypeNumber, 0.9},
		{"negative number", "-12.5", TypeNumber, 0.9},
		{"scientific notation", "1e3", TypeNumber, 0.9},
		{"boolean true", "true", TypeBoolean, 0.9},
		{"boolean yes", "yes", TypeBoolean, 0.9},
		// Three uppercase letters match the airport rule before the boolean
		// rule gets a look.
		{"uppercase yes is airport shaped", "YES", TypeAirportCode, 0.9},
		{"plain string", "Business trip to Denver", TypeString, 0.6},
		{"whitespace trimmed", "  SFO  ", TypeAirportCode, 0.9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotType, gotConfidence := Infer(tt.value)
			assert.Equal(t, tt.wantType, gotType)
			assert.InDelta(t, tt.wantConfidence, gotConfidence, 1e-9)
		})
	}
}

func TestInfer_NonStringScalars(t *testing.T) {
	gotType, _ := Infer(true)
	assert.Equal(t, TypeBoolean, gotType)

	// JSON numbers arrive as float64; a round value stringifies without a
	// trailing ".0" and lands on the bare-amount currency rule.
	gotType, _ = Infer(float64(250))
	assert.Equal(t, TypeCurrency, gotType)

	gotType, _ = Infer(float64(3.14159))
	assert.Equal(t, TypeNumber, gotType)
}

func TestInfer_Containers(t *testing.T) {
	gotType, gotConfidence := Infer([]any{1, 2, 3})
	assert.Equal(t, TypeArray, gotType)
	assert.Equal(t, 1.0, gotConfidence)

	gotType, gotConfidence = Infer(map[string]any{"a": 1})
	assert.Equal(t, TypeObject, gotType)
	assert.Equal(t, 1.0, gotConfidence)

	// Empty containers still classify structurally.
	gotType, _ = Infer([]any{})
	assert.Equal(t, TypeArray, gotType)
}

func TestInfer_Nil(t *testing.T) {
	gotType, gotConfidence := Infer(nil)
	assert.Equal(t, TypeUnknown, gotType)
	assert.Equal(t, 0.0, gotConfidence)
}

// The cascade order is the contract: values matching several rules must take
// the type of the first one.
func TestInfer_PrecedenceIsStable(t *testing.T) {
	// A currency-shaped decimal must not fall through to number.
	gotType, _ := Infer("19.99")
	assert.Equal(t, TypeCurrency, gotType)

	// "1" and "0" are boolean-ish but the currency rule sees them first.
	gotType, _ = Infer("1")
	assert.Equal(t, TypeCurrency, gotType)

	// An airport code is also a valid confirmation-code-free string; it must
	// classify before the string fallback.
	gotType, _ = Infer("LAX")
	assert.Equal(t, TypeAirportCode, gotType)
}

func TestStringify(t *testing.T) {
	assert.Equal(t, "hello", Stringify("hello"))
	assert.Equal(t, "true", Stringify(true))
	assert.Equal(t, "5", Stringify(float64(5)))
	assert.Equal(t, "3.14", Stringify(float64(3.14)))
	assert.Equal(t, "7", Stringify(7))
}
