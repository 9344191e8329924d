package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tasksync-backend/internal/apperr"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("jwt_secret: s3cret"), "demo", "")
	require.NoError(t, err)

	assert.Equal(t, DriverMemory, cfg.Driver)
	assert.Equal(t, ":8080", cfg.Listen)
	assert.Equal(t, "demo", cfg.AppID)
	assert.Empty(t, cfg.DurableToken)
}

func TestParsePostgres(t *testing.T) {
	blob := []byte(`
driver: postgres
jwt_secret: s3cret
db_host: localhost
db_user: app
db_password: pw
db_name: tasks
`)
	cfg, err := Parse(blob, "demo", "dev.secret")
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.DBPort)
	assert.Equal(t, "dev.secret", cfg.DurableToken)
	assert.Equal(t,
		"host=localhost port=5432 user=app password=pw dbname=tasks sslmode=disable",
		cfg.ConnString())
}

func TestParseRejectsBadInput(t *testing.T) {
	cases := map[string]struct {
		blob  string
		appID string
	}{
		"garbage yaml":          {blob: "{{not yaml", appID: "demo"},
		"missing app id":        {blob: "jwt_secret: s", appID: ""},
		"unknown driver":        {blob: "driver: dynamo\njwt_secret: s", appID: "demo"},
		"sqlite without path":   {blob: "driver: sqlite\njwt_secret: s", appID: "demo"},
		"postgres without host": {blob: "driver: postgres\njwt_secret: s", appID: "demo"},
		"missing jwt secret":    {blob: "driver: memory", appID: "demo"},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(tc.blob), tc.appID, "")
			assert.True(t, errors.Is(err, apperr.ErrConfiguration), "got %v", err)
		})
	}
}

func TestLoadRequiresBlob(t *testing.T) {
	t.Setenv("APP_CONFIG", "")
	t.Setenv("APP_ID", "demo")

	_, err := Load()
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_CONFIG", "jwt_secret: s3cret")
	t.Setenv("APP_ID", "demo")
	t.Setenv("AUTH_TOKEN", "dev.secret")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.AppID)
	assert.Equal(t, "dev.secret", cfg.DurableToken)
}
