package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"careline-chatbot/pkg"
)

// maxBodyBytes bounds request bodies; a chat message has no business being
// larger than this.
const maxBodyBytes = 64 * 1024

// chatRequestSchema is the wire contract for POST /chat.
const chatRequestSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["user_id", "message"],
  "properties": {
    "user_id": {"type": "string", "minLength": 1},
    "message": {"type": "string", "minLength": 1},
    "thread_id": {"type": "string"}
  },
  "additionalProperties": false
}`

// requestValidator checks chat request bodies against the JSON Schema
// before they are decoded into structs, so malformed payloads fail with a
// precise message instead of a zero-valued struct.
type requestValidator struct {
	schema *jsonschema.Schema
}

func newRequestValidator() *requestValidator {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("chat_request.json", bytes.NewReader([]byte(chatRequestSchema))); err != nil {
		panic(err)
	}
	return &requestValidator{schema: c.MustCompile("chat_request.json")}
}

// decode reads, validates, and unmarshals a chat request body.
func (v *requestValidator) decode(body io.Reader, dst *pkg.ChatRequest) error {
	raw, err := io.ReadAll(io.LimitReader(body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("request body is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("invalid chat request: %w", err)
	}
	return json.Unmarshal(raw, dst)
}
