package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cory-johannsen/tabletop/internal/game/risk"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestBattleIsDeterministicForASeed(t *testing.T) {
	first, err := run(t, "--seed", "11", "battle", "32")
	require.NoError(t, err)
	second, err := run(t, "--seed", "11", "battle", "32")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "🎲 attacker ("))
	// header plus two clashes
	assert.Len(t, strings.Split(strings.TrimSuffix(first, "\n"), "\n"), 3)
}

func TestBattleRejectsUnknownCode(t *testing.T) {
	_, err := run(t, "battle", "33")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown battle code")
}

func TestCountries(t *testing.T) {
	out, err := run(t, "--seed", "3", "countries", "4")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 42 countries")

	_, err = run(t, "countries", "6")
	assert.Error(t, err)
	_, err = run(t, "countries", "two")
	assert.Error(t, err)
}

func TestHowTo(t *testing.T) {
	out, err := run(t, "howto")
	require.NoError(t, err)
	assert.Equal(t, risk.HowTo+"\n", out)
}

func TestResolveFallsBackToUsage(t *testing.T) {
	out, err := run(t, "resolve", "roll", "the", "dice")
	require.NoError(t, err)
	assert.Equal(t, risk.Usage+"\n", out)

	out, err = run(t, "resolve", "countries", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "Total: 42 countries")
}
