package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/rotisserie/eris"
)

// ssmAPI is the slice of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter is what consumers depend on so they can be tested without AWS.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client reads decrypted parameters from SSM Parameter Store.
type Client struct {
	api ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, eris.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	v, err := c.get(ctx, name)
	if err != nil {
		return "", eris.Wrapf(err, "paramstore: get parameter %q", strings.TrimSpace(name))
	}
	return v, nil
}

// GetOptional is GetParameter for parameters that may legitimately be absent.
// A missing parameter reports ok=false with a nil error.
func (c *Client) GetOptional(ctx context.Context, name string) (string, bool, error) {
	v, err := c.get(ctx, name)
	if err != nil {
		var notFound *types.ParameterNotFound
		if errors.As(err, &notFound) {
			return "", false, nil
		}
		return "", false, eris.Wrapf(err, "paramstore: get optional parameter %q", strings.TrimSpace(name))
	}
	return v, true, nil
}

func (c *Client) get(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", eris.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", eris.New("paramstore: name is required")
	}

	withDecryption := true
	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           &name,
		WithDecryption: &withDecryption,
	})
	if err != nil {
		return "", err
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", eris.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// tokenPayload is the JSON shape API tokens are stored in.
type tokenPayload struct {
	Token string `json:"token"`
}

// FetchToken reads a {"token": "..."} parameter and returns the token.
func FetchToken(ctx context.Context, getter Getter, name string) (string, error) {
	if getter == nil {
		return "", eris.New("paramstore: getter is nil")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", eris.New("paramstore: token parameter name is empty")
	}

	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", eris.Wrap(err, "paramstore: fetch token")
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", eris.Wrap(err, "paramstore: token value is not JSON")
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", eris.New("paramstore: token is empty")
	}
	return tp.Token, nil
}
