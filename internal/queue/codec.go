package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Encode renders v as the queue wire format: JSON, then base64.
func Encode(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal message: %w", err)
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// Decode reverses Encode into v.
func Decode(body string, v any) error {
	data, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return fmt.Errorf("decode message base64: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode message json: %w", err)
	}
	return nil
}
