package followup

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDedupe_RemovesPreviouslyAskedKeepsOrder(t *testing.T) {
	got := Dedupe(
		[]string{"How much can you invest monthly?", "What Is Your Risk Tolerance?", "Do you have an emergency fund?"},
		[]string{"what is your risk tolerance?"},
	)
	require.Equal(t, []string{"How much can you invest monthly?", "Do you have an emergency fund?"}, got)
}

func TestDedupe_Idempotent(t *testing.T) {
	asked := []string{"  Are you saving for retirement? "}
	in := []string{"Are you saving for retirement?", "What is your horizon?", "what is your horizon?"}
	once := Dedupe(in, asked)
	require.Equal(t, once, Dedupe(once, asked))
	require.Equal(t, []string{"What is your horizon?", "what is your horizon?"}, once)
}

func TestDedupe_NothingAsked(t *testing.T) {
	in := []string{"What is your horizon?"}
	require.Equal(t, in, Dedupe(in, nil))
	require.Empty(t, Dedupe(nil, []string{"x"}))
}
