package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCardDataValidate(t *testing.T) {
	valid := CardData{Pan: "4300000000000777", ExpDate: "12/29", SecurityCode: "111"}
	assert.NoError(t, valid.Validate())

	tests := []struct {
		name  string
		card  CardData
		field string
	}{
		{"short pan", CardData{Pan: "4300", ExpDate: "12/29", SecurityCode: "111"}, "Pan"},
		{"luhn failure", CardData{Pan: "4300000000000778", ExpDate: "12/29", SecurityCode: "111"}, "Pan"},
		{"non-digit pan", CardData{Pan: "43000000000007xx", ExpDate: "12/29", SecurityCode: "111"}, "Pan"},
		{"bad cvv", CardData{Pan: "4300000000000777", ExpDate: "12/29", SecurityCode: "11"}, "SecurityCode"},
		{"expired card", CardData{Pan: "4300000000000777", ExpDate: "01/20", SecurityCode: "111"}, "ExpDate"},
		{"malformed expiry", CardData{Pan: "4300000000000777", ExpDate: "2029-12", SecurityCode: "111"}, "ExpDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.card.Validate()
			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}
