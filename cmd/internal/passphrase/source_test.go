package passphrase

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourcePrefersEnvironment(t *testing.T) {
	t.Setenv("POSI_TEST_PASS", "hunter2")
	src := NewSource("POSI_TEST_PASS", "operator")
	src.prompt = func(string) (string, error) {
		t.Fatalf("prompt must not run when the variable is set")
		return "", nil
	}
	value, err := src.Get()
	require.NoError(t, err)
	require.Equal(t, "hunter2", value)
}

func TestSourceRejectsBlankEnvironment(t *testing.T) {
	t.Setenv("POSI_TEST_PASS", "  ")
	_, err := NewSource("POSI_TEST_PASS", "operator").Get()
	require.Error(t, err)
}

func TestSourcePromptsOnceAndCaches(t *testing.T) {
	calls := 0
	src := NewSource("POSI_TEST_PASS_UNSET", "operator")
	src.prompt = func(label string) (string, error) {
		calls++
		require.Equal(t, "operator", label)
		return "secret", nil
	}
	for i := 0; i < 2; i++ {
		value, err := src.Get()
		require.NoError(t, err)
		require.Equal(t, "secret", value)
	}
	require.Equal(t, 1, calls)
}

func TestSourceWithoutTerminal(t *testing.T) {
	src := NewSource("POSI_TEST_PASS_UNSET", "")
	src.prompt = func(string) (string, error) { return "", errNoTerminal }
	_, err := src.Get()
	require.True(t, errors.Is(err, errNoTerminal))
	require.Contains(t, err.Error(), "POSI_TEST_PASS_UNSET")

	blank := NewSource("", "")
	blank.prompt = func(string) (string, error) { return " ", nil }
	_, err = blank.Get()
	require.Error(t, err)
}
