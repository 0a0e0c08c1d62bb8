package llm

import (
	"context"
	"errors"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClient struct {
	calls     []openai.ChatCompletionRequest
	responses []func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

func (f *fakeClient) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.calls = append(f.calls, req)
	fn := f.responses[len(f.calls)-1]
	return fn(req)
}

func textResponse(s string) func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{{Message: openai.ChatCompletionMessage{Content: s}}}}, nil
	}
}

func schemaRejection() func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	return func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
		return openai.ChatCompletionResponse{}, &openai.APIError{
			HTTPStatusCode: 400,
			Message:        "response_format json_schema is not supported by this model",
		}
	}
}

func TestInvoke_SchemaAccepted(t *testing.T) {
	f := &fakeClient{responses: []func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error){textResponse(`{"ok":true}`)}}
	out, err := Invoke(context.Background(), f, "m", "sys", "user", &Schema{Name: "t", Definition: []byte(`{"type":"object"}`)})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)
	require.Len(t, f.calls, 1)
	require.NotNil(t, f.calls[0].ResponseFormat)
	assert.Equal(t, openai.ChatCompletionResponseFormatTypeJSONSchema, f.calls[0].ResponseFormat.Type)
}

func TestInvoke_SchemaRejectionFallsBackOnce(t *testing.T) {
	f := &fakeClient{responses: []func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error){
		schemaRejection(),
		textResponse("plain"),
	}}
	out, err := Invoke(context.Background(), f, "m", "sys", "user", &Schema{Name: "t", Definition: []byte(`{}`)})
	require.NoError(t, err)
	assert.Equal(t, "plain", out)
	require.Len(t, f.calls, 2)
	assert.Nil(t, f.calls[1].ResponseFormat)
}

func TestInvoke_NonSchemaErrorDoesNotRetry(t *testing.T) {
	boom := errors.New("connection refused")
	f := &fakeClient{responses: []func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error){
		func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			return openai.ChatCompletionResponse{}, boom
		},
	}}
	_, err := Invoke(context.Background(), f, "m", "sys", "user", &Schema{Name: "t", Definition: []byte(`{}`)})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Len(t, f.calls, 1)
}

func TestInvoke_CancelledRequestPropagatesImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := &fakeClient{responses: []func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error){
		func(openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
			cancel()
			return openai.ChatCompletionResponse{}, context.Canceled
		},
	}}
	_, err := Invoke(ctx, f, "m", "sys", "user", &Schema{Name: "t", Definition: []byte(`{}`)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.calls, 1)
}

func TestClassifySchemaUnsupported(t *testing.T) {
	su, ok := classifySchemaUnsupported(&openai.APIError{HTTPStatusCode: 422, Message: "unknown field response_format"})
	require.True(t, ok)
	assert.Equal(t, 422, su.Status)

	_, ok = classifySchemaUnsupported(&openai.APIError{HTTPStatusCode: 500, Message: "schema error"})
	assert.False(t, ok)

	_, ok = classifySchemaUnsupported(&openai.APIError{HTTPStatusCode: 400, Message: "rate limit"})
	assert.False(t, ok)
}
