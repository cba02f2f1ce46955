package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
app:
  name: cotacao-workers
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: cotacao
    user: ${TEST_DB_USER}
  redis:
    address: localhost:6379
workers:
  evaluate-quotation:
    enabled: true
  assign-seller:
    enabled: false
    max_jobs_active: 1
quotation:
  fipe_limits:
    MOTO: 95000
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadFromFile(t *testing.T) {
	t.Setenv("TEST_DB_USER", "cotacao_app")

	cfg, err := LoadFromFile(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "cotacao_app", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "disable", cfg.Database.Postgres.SSLMode)
	assert.Equal(t, 300, cfg.Quotation.CacheTTLSeconds)
	assert.Equal(t, "quotations", cfg.Quotation.SearchIndex)
	assert.Equal(t, int64(1), cfg.Assignment.QueueID)
	assert.Equal(t, 3, cfg.Assignment.MaxRetries)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 95000.0, cfg.Quotation.FipeLimits["moto"])

	evaluate := GetWorkerConfig(cfg, "evaluate-quotation")
	assert.True(t, evaluate.Enabled)
	assert.Equal(t, 5, evaluate.MaxJobsActive)
	assert.Equal(t, 30000, evaluate.Timeout)

	assert.False(t, IsWorkerEnabled(cfg, "assign-seller"))
	assert.True(t, IsWorkerEnabled(cfg, "submit-quotation"))
	assert.Equal(t, 1, GetWorkerConfig(cfg, "assign-seller").MaxJobsActive)
}

func TestLoadFromFile_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{
			name:    "missing broker",
			content: "database:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n",
			errMsg:  "camunda.broker_address is required",
		},
		{
			name:    "missing redis",
			content: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n",
			errMsg:  "database.redis.address is required",
		},
		{
			name: "sns without topic",
			content: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
				"notifications:\n  sns:\n    enabled: true\n",
			errMsg: "notifications.sns.triage_topic_arn is required",
		},
		{
			name: "non-positive fipe limit",
			content: "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
				"quotation:\n  fipe_limits:\n    normal: 0\n",
			errMsg: "quotation.fipe_limits.normal must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("TRIAGE_TOPIC_ARN", "")
			_, err := LoadFromFile(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFile_ZeroAssignmentRetriesIsKept(t *testing.T) {
	content := "camunda:\n  broker_address: b\ndatabase:\n  postgres:\n    host: h\n    database: d\n    user: u\n  redis:\n    address: r\n" +
		"assignment:\n  max_retries: 0\n"

	cfg, err := LoadFromFile(writeConfig(t, content))
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Assignment.MaxRetries)
	assert.Equal(t, 50, cfg.Assignment.RetryDelayMs)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, "1.5s", GetDuration(1500).String())
}
