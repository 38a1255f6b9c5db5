package todo

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gin-gonic/gin"
)

var (
	errTextMissing   = errors.New(`"text" field missing`)
	errTextNotString = errors.New(`"text" field is not a string`)
)

// readBody parses the request body as arbitrary JSON. An empty body is a
// parse error.
func readBody(c *gin.Context) (any, error) {
	if c.Request.Body == nil {
		return nil, errors.New("request has no body")
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	var body any
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decoding body: %w", err)
	}
	return body, nil
}

// textField extracts the "text" string from a decoded body. A body that is
// not an object has no "text" field; a null "text" is not a string.
func textField(body any) (string, error) {
	obj, ok := body.(map[string]any)
	if !ok {
		return "", errTextMissing
	}
	v, ok := obj["text"]
	if !ok {
		return "", errTextMissing
	}
	text, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: got %T", errTextNotString, v)
	}
	return text, nil
}
