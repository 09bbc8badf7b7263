package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tyrowin/chatverse/internal/auth"
	"github.com/Tyrowin/chatverse/internal/presence"
)

func executeCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestVersion(t *testing.T) {
	stdout, _, err := executeCLI(t, "version")
	require.NoError(t, err)
	assert.Equal(t, version+"\n", stdout)
}

func TestTokenIsAcceptedByVerifier(t *testing.T) {
	stdout, _, err := executeCLI(t, "token", "--user", "alice", "--secret", "s3cret")
	require.NoError(t, err)

	user, err := auth.NewVerifier("s3cret").Verify(context.Background(), strings.TrimSpace(stdout))
	require.NoError(t, err)
	assert.Equal(t, presence.UserID("alice"), user)
}

func TestTokenRequiresUser(t *testing.T) {
	_, _, err := executeCLI(t, "token", "--secret", "s3cret")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag(s) \"user\" not set")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, exitConfig, exitCode(configError{err: errors.New("bad port")}))
	assert.Equal(t, exitRuntime, exitCode(errors.New("listen failed")))
}
