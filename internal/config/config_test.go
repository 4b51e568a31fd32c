package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/mollie-recurring/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"NODE_ENV":                   "",
		"APP_ENV":                    "",
		"PORT":                       "",
		"MANDATE_POLL_TIMEOUT":       "",
		"SUBSCRIPTION_CONCURRENCY":   "",
		"DEMO_WEBHOOK_URL":           "",
		"DEMO_SUBSCRIPTION_TIMES":    "",
		"MOLLIE_BASE_URL":            "",
		"OBS_METRICS_NAMESPACE":      "",
		"OBS_TRACING_EXPORTER":       "",
		"DEMO_SUBSCRIPTION_INTERVAL": "",
	})
	require.NoError(t, err)

	require.Equal(t, "development", cfg.AppEnv)
	require.False(t, cfg.IsProduction())
	require.Equal(t, ":4000", cfg.HTTPAddr())
	require.Equal(t, config.DefaultMollieBaseURL, cfg.MollieBaseURL)
	require.Equal(t, 40*time.Second, cfg.MandatePollWait)
	require.Equal(t, 4, cfg.SubscriptionConcurrency)
	require.Equal(t, "mollie", cfg.MetricsNamespace)
	require.Equal(t, "otlp", cfg.TracingExporter)

	require.Equal(t, "John Doe", cfg.Demo.CustomerName)
	require.Equal(t, map[string]any{"foo": "bar"}, cfg.Demo.CustomerMetadata)
	require.Equal(t, "EUR", cfg.Demo.Currency)
	require.Equal(t, "10.00", cfg.Demo.Value)
	require.Equal(t, "3 months", cfg.Demo.SubscriptionInterval)
	require.Equal(t, 4, cfg.Demo.SubscriptionTimes)
	require.NotEmpty(t, cfg.Demo.SubscriptionWebhookURL)
}

func TestLoadProductionSelectsLiveTier(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"NODE_ENV":            "production",
		"LIVE_MOLLIE_API_KEY": " live_abc ",
		"TEST_MOLLIE_API_KEY": "test_xyz",
	})
	require.NoError(t, err)
	require.True(t, cfg.IsProduction())
	require.Equal(t, "live_abc", cfg.MollieLiveAPIKey)
	require.Equal(t, "test_xyz", cfg.MollieTestAPIKey)
}

func TestLoadFallsBackToAppEnvForLabelsOnly(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"NODE_ENV": "",
		"APP_ENV":  "staging",
	})
	require.NoError(t, err)
	require.Equal(t, "staging", cfg.AppEnv)
	require.Empty(t, cfg.NodeEnv)
	require.False(t, cfg.IsProduction())
}

func TestAppEnvProductionDoesNotSelectLiveKey(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"NODE_ENV":            "",
		"APP_ENV":             "production",
		"LIVE_MOLLIE_API_KEY": "live_abc",
		"TEST_MOLLIE_API_KEY": "test_xyz",
	})
	require.NoError(t, err)
	require.Equal(t, "production", cfg.AppEnv)
	require.False(t, cfg.IsProduction())
	require.Equal(t, "test_xyz", cfg.MollieCredentials().APIKey())
}

func TestNodeEnvSelectsCredentialTier(t *testing.T) {
	cases := map[string]string{
		"production":  "live_abc",
		"development": "test_xyz",
		"staging":     "test_xyz",
		"":            "test_xyz",
	}
	for nodeEnv, want := range cases {
		t.Run("NODE_ENV="+nodeEnv, func(t *testing.T) {
			cfg, err := config.LoadForTests(map[string]string{
				"NODE_ENV":            nodeEnv,
				"APP_ENV":             "",
				"LIVE_MOLLIE_API_KEY": "live_abc",
				"TEST_MOLLIE_API_KEY": "test_xyz",
			})
			require.NoError(t, err)
			require.Equal(t, want, cfg.MollieCredentials().APIKey())
		})
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := config.LoadForTests(map[string]string{
		"PORT":                     ":8080",
		"MOLLIE_BASE_URL":          "http://localhost:9999/v2/",
		"MANDATE_POLL_TIMEOUT":     "5s",
		"MANDATE_POLL_INTERVAL":    "bogus",
		"SUBSCRIPTION_CONCURRENCY": "0",
		"CORS_ALLOWED_ORIGINS":     "https://a.test, ,https://b.test",
		"DEMO_WEBHOOK_URL":         "https://hooks.test/api/webhook",
	})
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.HTTPAddr())
	require.Equal(t, "http://localhost:9999/v2", cfg.MollieBaseURL)
	require.Equal(t, 5*time.Second, cfg.MandatePollWait)
	require.Equal(t, 2*time.Second, cfg.MandatePollBase)
	require.Equal(t, 1, cfg.SubscriptionConcurrency)
	require.Equal(t, []string{"https://a.test", "https://b.test"}, cfg.CORSAllowedOrigins)
	require.Equal(t, "https://hooks.test/api/webhook", cfg.Demo.SubscriptionWebhookURL)
}

func TestMustLoadReadsEnvironment(t *testing.T) {
	t.Setenv("NODE_ENV", "production")
	t.Setenv("LIVE_MOLLIE_API_KEY", "live_abc")

	cfg := config.MustLoad()
	require.True(t, cfg.IsProduction())
	require.Equal(t, "live_abc", cfg.MollieCredentials().APIKey())
}
