package client

import (
	"context"
)

// VisionClient sends a prompt and a base64 encoded JPEG to a vision model.
type VisionClient interface {
	SimpleQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
	// JSONQuery asks the backend to constrain the answer to a JSON object.
	JSONQuery(ctx context.Context, model, prompt, imgB64 string) (string, error)
}
