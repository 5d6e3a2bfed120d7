package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ledger/internal/infra/postgres"
)

func TestParseDirection(t *testing.T) {
	tests := []struct {
		in      string
		want    postgres.Direction
		wantErr bool
	}{
		{"up", postgres.Up, false},
		{"down", postgres.Down, false},
		{"UP", "", true},
		{"", "", true},
		{"sideways", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseDirection(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveDSN(t *testing.T) {
	env := map[string]string{"DATABASE_URL": "postgres://env"}
	getenv := func(k string) string { return env[k] }

	assert.Equal(t, "postgres://flag", resolveDSN("postgres://flag", getenv))
	assert.Equal(t, "postgres://env", resolveDSN("", getenv))
	assert.Equal(t, "", resolveDSN("", func(string) string { return "" }))
}
