package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "alertlens.yaml", `threads: 4
fail_on: critical
min_risk: 30
no_cache: true
llm:
  enabled: true
  model: local
  timeout: 5s
`)
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	require.NotNil(t, cfg.Threads)
	assert.Equal(t, 4, *cfg.Threads)
	assert.Equal(t, "critical", *cfg.FailOn)
	assert.Equal(t, 30, *cfg.MinRisk)
	assert.True(t, *cfg.NoCache)
	assert.Nil(t, cfg.LogLevel)

	llm := cfg.GetLLMConfig()
	assert.True(t, llm.IsEnabled())
	assert.Equal(t, "local", llm.GetModel())
	assert.Equal(t, "", llm.GetEndpoint())
	assert.Equal(t, 5*time.Second, llm.GetTimeout())
	assert.Equal(t, DefaultAPIKeyEnv, *llm.APIKeyEnv)
}

func TestLoadFile_Invalid(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "bad.yml", "threads: [\n")
	_, err := LoadFile(p)
	assert.Error(t, err)
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	writeTemp(t, dir, "alertlens.yaml", "threads: 1\n")
	writeTemp(t, dir, ".alertlens.yml", "threads: 7\n")
	cfg, err := LoadLocal(dir)
	require.NoError(t, err)
	assert.Equal(t, 7, *cfg.Threads)
}

func TestLoadLocal_NoConfig(t *testing.T) {
	_, err := LoadLocal(t.TempDir())
	assert.Error(t, err)
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "alertlens")
	require.NoError(t, os.MkdirAll(cfgDir, 0o755))
	writeTemp(t, cfgDir, "config.yml", "threads: 9\n")
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg, err := LoadGlobal()
	require.NoError(t, err)
	assert.Equal(t, 9, *cfg.Threads)
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	_, err := LoadGlobal()
	assert.Error(t, err)
}

func TestLLMConfig_Defaults(t *testing.T) {
	var cfg FileConfig
	llm := cfg.GetLLMConfig()
	assert.False(t, llm.IsEnabled())
	assert.Equal(t, DefaultLLMTimeout, llm.GetTimeout())

	bad := "soon"
	llm.Timeout = &bad
	assert.Equal(t, DefaultLLMTimeout, llm.GetTimeout())
}

func TestLLMConfig_APIKey(t *testing.T) {
	env := "MY_LLM_KEY"
	t.Setenv(env, "secret")
	lc := LLMConfig{APIKeyEnv: &env}
	assert.Equal(t, "secret", lc.APIKey())
}

func TestStarter_Parses(t *testing.T) {
	var cfg FileConfig
	require.NoError(t, yaml.Unmarshal([]byte(Starter), &cfg))
	assert.Equal(t, "high", *cfg.FailOn)
	assert.False(t, cfg.GetLLMConfig().IsEnabled())
}
