package template

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name string
		tmpl string
		data map[string]string
		want string
	}{
		{"single", "{{a}}", map[string]string{"a": "x"}, "x"},
		{"repeated", "{{a}}-{{a}}", map[string]string{"a": "x"}, "x-x"},
		{"unknown stays literal", "Hi {{name}}, {{missing}}", map[string]string{"name": "Ann"}, "Hi Ann, {{missing}}"},
		{"no placeholders", "plain text", map[string]string{"a": "x"}, "plain text"},
		{"empty template", "", map[string]string{"a": "x"}, ""},
		{"value with braces is not re-expanded", "{{a}}", map[string]string{"a": "{{b}}", "b": "y"}, "{{b}}"},
		{"dollar in value", "Due {{amount_due}}", map[string]string{"amount_due": "$12.50"}, "Due $12.50"},
		{"spaces are not placeholders", "{{ a }}", map[string]string{"a": "x"}, "{{ a }}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Render(tt.tmpl, tt.data))
		})
	}
}

func TestPlaceholders(t *testing.T) {
	got := Placeholders("{{customer_name}} owes {{amount_due}}; {{customer_name}} again")
	assert.Equal(t, []string{"customer_name", "amount_due"}, got)
	assert.Empty(t, Placeholders("nothing here"))
}

func TestUnknown(t *testing.T) {
	got := Unknown("{{customer_name}} {{coupon}}", []string{"customer_name", "amount_due"})
	assert.Equal(t, []string{"coupon"}, got)
}
