package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DB_CONN_STR", "")
	t.Setenv("STORAGE", "")
	t.Setenv("SCHEDULE_SPEC", "")
	t.Setenv("SCHEDULE_PORTFOLIOS", "")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.GRPCAddr)
	assert.Equal(t, StoragePostgres, cfg.Storage)
	assert.Equal(t, "JP", cfg.Market)
	assert.Equal(t, 10*time.Minute, cfg.CurveCacheTTL)
	assert.Contains(t, cfg.DBConnStr, "dbname=calculator")
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "Memory")
	t.Setenv("DB_CONN_STR", "postgres://calc@db/calc")
	t.Setenv("DISPATCHER_WORKERS", "8")
	t.Setenv("JOB_TIMEOUT", "90s")
	t.Setenv("SCHEDULE_SPEC", "0 30 18 * * 1-5")
	t.Setenv("SCHEDULE_PORTFOLIOS", "1, 2,3")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, "postgres://calc@db/calc", cfg.DBConnStr)
	assert.Equal(t, 8, cfg.DispatcherWorkers)
	assert.Equal(t, 90*time.Second, cfg.JobTimeout)
	assert.Equal(t, []int64{1, 2, 3}, cfg.ScheduledPortfolios)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "Unknown storage", env: map[string]string{"STORAGE": "sqlite"}, want: "STORAGE must be"},
		{name: "Schedule without portfolios", env: map[string]string{"SCHEDULE_SPEC": "@daily", "SCHEDULE_PORTFOLIOS": ""}, want: "SCHEDULE_PORTFOLIOS is required"},
		{name: "Bad portfolio id", env: map[string]string{"SCHEDULE_PORTFOLIOS": "1,abc"}, want: "invalid portfolio id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("STORAGE", "")
			t.Setenv("SCHEDULE_SPEC", "")
			t.Setenv("SCHEDULE_PORTFOLIOS", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
