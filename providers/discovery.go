package providers

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// listModelIDs fetches the provider's model catalog through its
// OpenAI-compatible /models endpoint. Both bundled providers speak that
// shape, so the official SDK client handles the exchange.
func (b *Base) listModelIDs(ctx context.Context) ([]string, error) {
	apiKey := Setting[string](b, "api_key")
	if apiKey == "" {
		return nil, fmt.Errorf("%w for provider %s", ErrMissingAPIKey, b.name)
	}

	cfg := openai.DefaultConfig(apiKey)
	cfg.BaseURL = b.ServerURL()
	client := openai.NewClientWithConfig(cfg)

	list, err := client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing %s models: %w", b.name, err)
	}

	ids := make([]string, 0, len(list.Models))
	for _, m := range list.Models {
		ids = append(ids, m.ID)
	}
	return ids, nil
}
