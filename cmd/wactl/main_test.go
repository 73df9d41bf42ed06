package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

// Argument validation runs before any connection is attempted.
func TestArgumentValidation(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"token bad email", []string{"token", "not-an-email"}, "invalid email"},
		{"token bad role", []string{"token", "ops@example.com", "--role", "root"}, "invalid role"},
		{"launch bad id", []string{"campaign", "launch", "42"}, "invalid campaign id"},
		{"stats missing id", []string{"campaign", "stats"}, "accepts 1 arg"},
		{"phone not e164", []string{"phone-check", "074000001"}, "E.164"},
		{"create bad template", []string{"campaign", "create", "Promo", "--template", "x", "--owner", "y"}, "invalid template id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokenRole = "agent"
			var out bytes.Buffer
			rootCmd.SetOut(&out)
			rootCmd.SetErr(&out)
			rootCmd.SetArgs(tt.args)

			err := rootCmd.Execute()
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
