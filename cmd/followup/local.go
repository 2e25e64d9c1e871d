package main

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rotisserie/eris"

	"followup-agent/internal/domain"
	"followup-agent/internal/followup"
	"followup-agent/internal/integrations/paramstore"
)

// tokenEnv maps token parameter suffixes to the environment variables that
// stand in for them when running without SSM.
var tokenEnv = map[string]string{
	"/open-ai-token":   "OPENAI_API_KEY",
	"/anthropic-token": "ANTHROPIC_API_KEY",
}

// envTokens serves backend tokens from the environment in the JSON shape the
// integrations expect from Parameter Store.
type envTokens struct{}

func (envTokens) GetParameter(_ context.Context, name string) (string, error) {
	for suffix, key := range tokenEnv {
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		token := strings.TrimSpace(os.Getenv(key))
		if token == "" {
			return "", eris.Errorf("%s is not set", key)
		}
		raw, err := json.Marshal(map[string]string{"token": token})
		if err != nil {
			return "", eris.Wrap(err, "encode token")
		}
		return string(raw), nil
	}
	return "", eris.Errorf("no local value for parameter %s", name)
}

func ssmParams(ctx context.Context) (*paramstore.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "load AWS config")
	}
	return paramstore.New(awsssm.NewFromConfig(awsCfg))
}

// replayClient returns a recorded completion, which exercises the parser and
// validator without a network call.
type replayClient struct {
	reply string
}

func (r replayClient) Complete(context.Context, string, followup.CompletionOptions) (string, error) {
	if strings.TrimSpace(r.reply) == "" {
		return "", eris.New("replay: empty reply")
	}
	return r.reply, nil
}

// readState decodes a state document from path, or stdin when path is "-".
func readState(path string, stdin io.Reader) (domain.State, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return domain.State{}, eris.Wrapf(err, "read state %s", path)
	}
	var state domain.State
	if err := json.Unmarshal(data, &state); err != nil {
		return domain.State{}, eris.Wrapf(err, "decode state %s", path)
	}
	if strings.TrimSpace(state.UserQuery) == "" {
		return domain.State{}, eris.New("state: user_query must not be empty")
	}
	return state, nil
}
