package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/rs/zerolog/log"
)

// Schema is an optional structured-output hint. Definition must be a valid
// JSON schema object.
type Schema struct {
	Name       string
	Definition json.RawMessage
}

// SchemaUnsupportedError reports that the backend rejected a structured
// output request. Invoke retries exactly once without the schema before
// propagating it.
type SchemaUnsupportedError struct {
	Status  int
	Message string
}

func (e *SchemaUnsupportedError) Error() string {
	return fmt.Sprintf("structured output unsupported (status %d): %s", e.Status, e.Message)
}

// Invoke sends one system+user exchange. When schema is non-nil it first
// requests a json_schema response format; if the backend rejects the schema
// it falls back to a single unstructured call. An aborted request is never
// classified as a schema failure and propagates immediately.
func Invoke(ctx context.Context, c Client, model, system, user string, schema *Schema) (string, error) {
	if c == nil || strings.TrimSpace(model) == "" {
		return "", errors.New("model client not configured")
	}

	req := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Temperature: 0.1,
		N:           1,
	}
	if schema != nil {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   schema.Name,
				Schema: schema.Definition,
				Strict: true,
			},
		}
	}

	resp, err := c.CreateChatCompletion(ctx, req)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if schema == nil {
			return "", fmt.Errorf("model call: %w", err)
		}
		su, ok := classifySchemaUnsupported(err)
		if !ok {
			return "", fmt.Errorf("model call: %w", err)
		}
		log.Warn().Int("status", su.Status).Msg("backend rejected structured output; retrying without schema")
		req.ResponseFormat = nil
		resp, err = c.CreateChatCompletion(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", fmt.Errorf("model call after schema fallback (%v): %w", su, err)
		}
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("no choices")
	}
	return resp.Choices[0].Message.Content, nil
}

// schemaStatusCodes are the HTTP-like statuses a schema rejection arrives with.
var schemaStatusCodes = map[int]bool{400: true, 404: true, 415: true, 422: true}

func classifySchemaUnsupported(err error) (*SchemaUnsupportedError, bool) {
	status := 0
	msg := err.Error()

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
		msg = apiErr.Message
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if !schemaStatusCodes[status] {
		return nil, false
	}
	lower := strings.ToLower(msg)
	if !strings.Contains(lower, "schema") &&
		!strings.Contains(lower, "response_format") &&
		!strings.Contains(lower, "response format") {
		return nil, false
	}
	return &SchemaUnsupportedError{Status: status, Message: msg}, true
}
