package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/google/subcommands"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ledger/internal/config"
	"github.com/dvloznov/finance-ledger/internal/ledger"
)

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		want    *ledger.DateRange
		wantErr error
	}{
		{name: "none", want: nil},
		{
			name: "both",
			from: "2024-01-01",
			to:   "2024-01-31",
			want: &ledger.DateRange{Start: civil.Date{Year: 2024, Month: 1, Day: 1}, End: civil.Date{Year: 2024, Month: 1, Day: 31}},
		},
		{name: "only from", from: "2024-01-01", wantErr: errUsage},
		{name: "bad date", from: "2024-13-01", to: "2024-01-31", wantErr: errUsage},
		{name: "reversed", from: "2024-02-01", to: "2024-01-31", wantErr: ledger.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDateRange(tt.from, tt.to)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseID(t *testing.T) {
	id := uuid.New()
	got, err := parseID("account", id.String())
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = parseID("account", "")
	assert.True(t, errors.Is(err, errUsage))
	_, err = parseID("account", "nope")
	assert.True(t, errors.Is(err, errUsage))

	opt, err := parseOptionalID("category", "")
	require.NoError(t, err)
	assert.Nil(t, opt)
}

func TestApplyFlags(t *testing.T) {
	cfg := config.Defaults()
	cfg.DatabaseURL = "postgres://env"

	got := applyFlags(cfg, "", "localhost:6379", "debug")
	assert.Equal(t, "postgres://env", got.DatabaseURL)
	assert.Equal(t, "localhost:6379", got.RedisAddr)
	assert.Equal(t, "debug", got.LogLevel)

	got = applyFlags(cfg, "postgres://flag", "", "")
	assert.Equal(t, "postgres://flag", got.DatabaseURL)
	assert.Equal(t, "info", got.LogLevel)
}

func TestRegister(t *testing.T) {
	c := subcommands.NewCommander(flag.NewFlagSet("ledger", flag.ContinueOnError), "ledger")
	register(c)

	var names []string
	c.VisitCommands(func(_ *subcommands.CommandGroup, cmd subcommands.Command) {
		names = append(names, cmd.Name())
	})
	assert.ElementsMatch(t, []string{
		"create-account", "valuation", "recompute", "import", "rollback", "transactions", "export",
	}, names)
}

func TestRunRequiresUser(t *testing.T) {
	prev := *userFlag
	*userFlag = ""
	t.Cleanup(func() { *userFlag = prev })

	called := false
	status := run(context.Background(), func(ctx context.Context, a *app, userID uuid.UUID) error {
		called = true
		return nil
	})
	assert.Equal(t, subcommands.ExitUsageError, status)
	assert.False(t, called)
}

func TestRunInMemory(t *testing.T) {
	t.Setenv(config.EnvDatabaseURL, "")
	t.Setenv(config.EnvRedisAddr, "")
	t.Setenv(config.EnvBigQueryProject, "")
	t.Setenv(config.EnvLogLevel, "error")

	prev := *userFlag
	*userFlag = uuid.NewString()
	t.Cleanup(func() { *userFlag = prev })

	status := run(context.Background(), func(ctx context.Context, a *app, userID uuid.UUID) error {
		assert.Nil(t, a.exporter)
		_, err := a.svc.GetAccount(ctx, userID, uuid.New())
		assert.True(t, errors.Is(err, ledger.ErrNotFound))
		return err
	})
	assert.Equal(t, subcommands.ExitFailure, status)
}

func TestFailMapsValidation(t *testing.T) {
	a := &app{}
	a.log = a.log.Output(io.Discard)
	assert.Equal(t, subcommands.ExitUsageError, a.fail(&ledger.ValidationError{}))
	assert.Equal(t, subcommands.ExitFailure, a.fail(errors.New("boom")))
}
