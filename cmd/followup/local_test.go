package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"followup-agent/internal/followup"
	"followup-agent/internal/integrations/paramstore"
)

func TestEnvTokens(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-local")
	t.Setenv("ANTHROPIC_API_KEY", "")

	token, err := paramstore.FetchToken(context.Background(), envTokens{}, "/followup/local/open-ai-token")
	require.NoError(t, err)
	require.Equal(t, "sk-local", token)

	_, err = envTokens{}.GetParameter(context.Background(), "/followup/local/anthropic-token")
	require.ErrorContains(t, err, "ANTHROPIC_API_KEY is not set")

	_, err = envTokens{}.GetParameter(context.Background(), "/followup/local/other")
	require.Error(t, err)
}

func TestReplayClient(t *testing.T) {
	got, err := replayClient{reply: `["What is your horizon?"]`}.Complete(context.Background(), "p", followup.CompletionOptions{})
	require.NoError(t, err)
	require.Equal(t, `["What is your horizon?"]`, got)

	_, err = replayClient{reply: " "}.Complete(context.Background(), "p", followup.CompletionOptions{})
	require.Error(t, err)
}

func TestReadState(t *testing.T) {
	state, err := readState("-", strings.NewReader(`{"user_query":"How should I invest?","agent_type":"portfolio"}`))
	require.NoError(t, err)
	require.Equal(t, "How should I invest?", state.UserQuery)
	require.Equal(t, "portfolio", state.AgentType)

	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"user_query":"From file"}`), 0o600))
	state, err = readState(path, nil)
	require.NoError(t, err)
	require.Equal(t, "From file", state.UserQuery)

	_, err = readState("-", strings.NewReader(`{"user_query":"  "}`))
	require.ErrorContains(t, err, "user_query")

	_, err = readState("-", strings.NewReader(`nope`))
	require.Error(t, err)

	_, err = readState(filepath.Join(t.TempDir(), "missing.json"), nil)
	require.Error(t, err)
}
