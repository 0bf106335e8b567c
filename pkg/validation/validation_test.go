package validation_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/riverbyte/capacity-engine/pkg/validation"
)

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trims whitespace", "  web-pool  ", "web-pool"},
		{"strips null bytes", "web\x00pool", "webpool"},
		{"strips control characters", "web\x07pool", "webpool"},
		{"keeps newline and tab", "line1\n\tline2", "line1\n\tline2"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, validation.SanitizeString(tt.input))
		})
	}
}

func TestValidatePoolName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "web-frontend", false},
		{"valid with underscore", "batch_workers-2", false},
		{"empty", "", true},
		{"too short", "ab", true},
		{"too long", strings.Repeat("a", 101), true},
		{"leading hyphen", "-pool", true},
		{"illegal characters", "pool name!", true},
		{"reserved", "admin", true},
		{"reserved mixed case", "SYSTEM", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidatePoolName(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateResourceType(t *testing.T) {
	for _, valid := range []string{"compute", "storage", "bandwidth", "worker", "Compute"} {
		assert.NoError(t, validation.ValidateResourceType(valid), valid)
	}

	assert.Error(t, validation.ValidateResourceType(""))
	assert.Error(t, validation.ValidateResourceType("gpu"))
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantErr bool
	}{
		{"valid", "Str0ng!pass", false},
		{"too short", "S1!a", true},
		{"no uppercase", "str0ng!pass", true},
		{"no lowercase", "STR0NG!PASS", true},
		{"no digit", "Strong!pass", true},
		{"no special", "Str0ngpass", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidatePassword(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCapacityRange(t *testing.T) {
	assert.NoError(t, validation.ValidateCapacityRange(1, 10))
	assert.NoError(t, validation.ValidateCapacityRange(0, 0))
	assert.Error(t, validation.ValidateCapacityRange(-1, 10))
	assert.Error(t, validation.ValidateCapacityRange(10, 5))
	assert.Error(t, validation.ValidateCapacityRange(0, 10001))
}
