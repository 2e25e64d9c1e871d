package paramstore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
	"github.com/stretchr/testify/require"
)

type fakeAPI struct {
	getOut  *ssm.GetParameterOutput
	getErr  error
	lastIn  *ssm.GetParameterInput
	callCnt int
}

func (f *fakeAPI) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	f.callCnt++
	f.lastIn = in
	return f.getOut, f.getErr
}

func strPtr(s string) *string { return &s }

func valueOut(v string) *ssm.GetParameterOutput {
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: strPtr("p"), Value: strPtr(v)}}
}

func TestGetParameter_DecryptsAndReturnsValue(t *testing.T) {
	api := &fakeAPI{getOut: valueOut("templates: []")}
	client, err := New(api)
	require.NoError(t, err)

	v, err := client.GetParameter(context.Background(), " /followup/dev/x ")
	require.NoError(t, err)
	require.Equal(t, "templates: []", v)
	require.Equal(t, "/followup/dev/x", *api.lastIn.Name)
	require.True(t, *api.lastIn.WithDecryption)
}

func TestGetParameter_Errors(t *testing.T) {
	tests := []struct {
		name   string
		client *Client
		param  string
		want   string
	}{
		{name: "missing value", client: &Client{api: &fakeAPI{getOut: &ssm.GetParameterOutput{Parameter: &types.Parameter{}}}}, param: "p", want: "missing value"},
		{name: "api error", client: &Client{api: &fakeAPI{getErr: errors.New("boom")}}, param: "p", want: "boom"},
		{name: "not initialized", client: &Client{}, param: "p", want: "not initialized"},
		{name: "empty name", client: &Client{api: &fakeAPI{}}, param: "  ", want: "required"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.client.GetParameter(context.Background(), tc.param)
			require.ErrorContains(t, err, tc.want)
		})
	}
}

func TestGetOptional(t *testing.T) {
	found := &Client{api: &fakeAPI{getOut: valueOut("v")}}
	v, ok, err := found.GetOptional(context.Background(), "p")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "v", v)

	missing := &Client{api: &fakeAPI{getErr: fmt.Errorf("operation error: %w", &types.ParameterNotFound{})}}
	_, ok, err = missing.GetOptional(context.Background(), "p")
	require.NoError(t, err)
	require.False(t, ok)

	broken := &Client{api: &fakeAPI{getErr: errors.New("throttled")}}
	_, ok, err = broken.GetOptional(context.Background(), "p")
	require.ErrorContains(t, err, "throttled")
	require.False(t, ok)
}

func TestNew_NilAPI(t *testing.T) {
	_, err := New(nil)
	require.ErrorContains(t, err, "must not be nil")
}

type fakeGetter struct {
	val string
	err error
}

func (f fakeGetter) GetParameter(context.Context, string) (string, error) { return f.val, f.err }

func TestFetchToken(t *testing.T) {
	tok, err := FetchToken(context.Background(), fakeGetter{val: `{"token":"sk-123"}`}, "/p/token")
	require.NoError(t, err)
	require.Equal(t, "sk-123", tok)

	tests := []struct {
		name   string
		getter Getter
		param  string
		want   string
	}{
		{name: "nil getter", getter: nil, param: "/p", want: "getter is nil"},
		{name: "empty name", getter: fakeGetter{}, param: " ", want: "name is empty"},
		{name: "fetch error", getter: fakeGetter{err: errors.New("denied")}, param: "/p", want: "denied"},
		{name: "not json", getter: fakeGetter{val: "sk-raw"}, param: "/p", want: "not JSON"},
		{name: "empty token", getter: fakeGetter{val: `{"token":"  "}`}, param: "/p", want: "token is empty"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := FetchToken(context.Background(), tc.getter, tc.param)
			require.ErrorContains(t, err, tc.want)
		})
	}
}
