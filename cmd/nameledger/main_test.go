package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	jwttoken "nameledger/internal/jwt_token"
	"nameledger/internal/platform/config"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestQuoteCommand(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Run("explicit pricing", func(t *testing.T) {
		out, err := execute(t, "quote", "--name", "alice", "--tld", "com", "--term", "1", "--base-fee", "10000", "--multiplier", "200")
		require.NoError(t, err)
		assert.Equal(t, "alice.com  1 year(s)  2000000\n", out)
	})

	t.Run("falls back to configured seeds", func(t *testing.T) {
		t.Setenv("NAMELEDGER_BASE_FEE", "10000")
		t.Setenv("NAMELEDGER_TLDS", "com=200")
		out, err := execute(t, "quote", "--name", "alice", "--tld", "COM", "--term", "10", "--base-fee", "0", "--multiplier", "0")
		require.NoError(t, err)
		assert.True(t, strings.HasSuffix(out, "11000000\n"), out)
	})

	t.Run("unknown tld without multiplier", func(t *testing.T) {
		_, err := execute(t, "quote", "--name", "alice", "--tld", "zzz", "--term", "1", "--base-fee", "10000", "--multiplier", "0")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "zzz")
	})

	t.Run("dotted labels are refused", func(t *testing.T) {
		_, err := execute(t, "quote", "--name", "x.b", "--tld", "com", "--term", "1", "--base-fee", "10000", "--multiplier", "200")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "single label")

		_, err = execute(t, "quote", "--name", "x", "--tld", "b.com", "--term", "1", "--base-fee", "10000", "--multiplier", "200")
		require.Error(t, err)
	})

	t.Run("term out of range", func(t *testing.T) {
		_, err := execute(t, "quote", "--name", "alice", "--tld", "com", "--term", "11", "--base-fee", "10000", "--multiplier", "200")
		require.Error(t, err)
	})
}

func TestTokenCommand(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NAMELEDGER_LOG_LEVEL", "error")

	out, err := execute(t, "token", "--identity", "alice", "--ttl", "1h")
	require.NoError(t, err)

	claims, err := jwttoken.NewJWTService(config.DevSigningKey, "nameledger").ValidateToken(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Subject)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, time.Minute)

	_, err = execute(t, "token", "--identity", " ", "--ttl", "1h")
	assert.Error(t, err)
}
