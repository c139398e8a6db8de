package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateParam(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "plain brand", value: "Michelin", wantErr: false},
		{name: "brand with space and dash", value: "BF Goodrich-Plus", wantErr: false},
		{name: "model with dot", value: "Serie 3.0", wantErr: false},
		{name: "empty", value: "", wantErr: true},
		{name: "too long", value: strings.Repeat("a", 65), wantErr: true},
		{name: "sql keyword", value: "Michelin UNION ALL", wantErr: true},
		{name: "lowercase sql keyword", value: "drop everything", wantErr: true},
		{name: "quote injection", value: "x' OR '1'='1", wantErr: true},
		{name: "semicolon", value: "tires;", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParam("brand", tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateYear(t *testing.T) {
	assert.NoError(t, ValidateYear(1900))
	assert.NoError(t, ValidateYear(2026))
	assert.NoError(t, ValidateYear(2100))
	assert.Error(t, ValidateYear(1899))
	assert.Error(t, ValidateYear(2101))
	assert.Error(t, ValidateYear(0))
}
