package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/37-Inc/goose.gifts/internal/models"
)

// ErrNotConfigured is returned when a generation method is called without an
// API key having been provided.
var ErrNotConfigured = errors.New("gemini client not configured")

// Client wraps the Gemini SDK with one schema-constrained model per pipeline
// task. Timeouts and retries are the caller's responsibility.
type Client struct {
	concepts *genai.GenerativeModel
	queries  *genai.GenerativeModel
	curator  *genai.GenerativeModel
}

type conceptResult struct {
	Concepts []string `json:"concepts"`
}

type queryResult struct {
	Queries []string `json:"queries"`
}

type curationResult struct {
	Picks []models.CurationPick `json:"picks"`
}

func NewClient(ctx context.Context, apiKey, modelID string) (*Client, error) {
	if apiKey == "" {
		return nil, nil // Callers get ErrNotConfigured from the methods
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	concepts := client.GenerativeModel(modelID)
	concepts.SetTemperature(0.9) // Concept brainstorming benefits from variety
	concepts.ResponseMIMEType = "application/json"
	concepts.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"concepts": {
				Type:        genai.TypeArray,
				Description: "Distinct gift concept themes, each a short phrase anchored to the recipient description.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"concepts"},
	}

	queries := client.GenerativeModel(modelID)
	queries.SetTemperature(0.7)
	queries.ResponseMIMEType = "application/json"
	queries.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"queries": {
				Type:        genai.TypeArray,
				Description: "Marketplace search query strings for the concept, each 2-6 words, mutually distinct.",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"queries"},
	}

	curator := client.GenerativeModel(modelID)
	curator.SetTemperature(0.2) // Selection should stay close to the evidence
	curator.ResponseMIMEType = "application/json"
	curator.ResponseSchema = &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"picks": {
				Type:        genai.TypeArray,
				Description: "Selected products, best match first.",
				Items: &genai.Schema{
					Type: genai.TypeObject,
					Properties: map[string]*genai.Schema{
						"product_id": {
							Type:        genai.TypeString,
							Description: "The id of a candidate product, copied verbatim.",
						},
						"concept": {
							Type:        genai.TypeString,
							Description: "The concept this product best fits.",
						},
					},
					Required: []string{"product_id"},
				},
			},
		},
		Required: []string{"picks"},
	}

	return &Client{concepts: concepts, queries: queries, curator: curator}, nil
}

// GenerateConcepts asks for n distinct gift concepts for the recipient.
// The caller validates count and distinctness.
func (c *Client) GenerateConcepts(ctx context.Context, description string, humor models.HumorStyle, n int) ([]string, error) {
	if c == nil || c.concepts == nil {
		return nil, ErrNotConfigured
	}

	prompt := fmt.Sprintf(`
You are planning a gift guide.

Recipient: %q
Tone: %s

Task: propose exactly %d distinct gift concepts (thematic angles) for this
recipient. Each concept is a short phrase like "cozy gardening evenings" or
"tools that spark joy". Concepts must not overlap with each other and must
stay anchored to the recipient description.

Output JSON adhering to the schema.
`, description, humorLine(humor), n)

	resp, err := c.concepts.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini concept generation failed: %w", err)
	}

	var result conceptResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Concepts, nil
}

// ExpandQueries asks for up to m marketplace search queries for one concept.
func (c *Client) ExpandQueries(ctx context.Context, description, concept string, m int) ([]string, error) {
	if c == nil || c.queries == nil {
		return nil, ErrNotConfigured
	}

	prompt := fmt.Sprintf(`
Gift concept: %q
Recipient: %q

Task: write %d distinct product search queries a shopper would type into a
marketplace search box to find gifts matching this concept. Keep each query
concrete and product-oriented (2-6 words). No quotes, no punctuation.

Output JSON adhering to the schema.
`, concept, description, m)

	resp, err := c.queries.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini query expansion failed: %w", err)
	}

	var result queryResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Queries, nil
}

// CurateProducts asks the model to select and rank at most limit products
// from the candidate pool. Returned picks are unvalidated; the pipeline
// discards picks whose product_id is not in the pool.
func (c *Client) CurateProducts(ctx context.Context, description string, candidates []models.CandidateProduct, limit int) ([]models.CurationPick, error) {
	if c == nil || c.curator == nil {
		return nil, ErrNotConfigured
	}

	var sb strings.Builder
	for _, cand := range candidates {
		line := map[string]any{
			"id":      cand.IdentityKey,
			"title":   cand.Title,
			"source":  cand.Source,
			"concept": cand.Concept.Text,
		}
		if cand.Price != nil {
			line["price"] = *cand.Price
		}
		encoded, err := json.Marshal(line)
		if err != nil {
			return nil, fmt.Errorf("failed to encode candidate %s: %w", cand.IdentityKey, err)
		}
		sb.Write(encoded)
		sb.WriteByte('\n')
	}

	prompt := fmt.Sprintf(`
Recipient: %q

Candidate products (one JSON object per line):
%s
Task: pick the best gifts for this recipient, at most %d, ordered best first.
Prefer covering several concepts over stacking one. Copy the "id" field of
each chosen candidate verbatim into "product_id". Do not invent products.

Output JSON adhering to the schema.
`, description, sb.String(), limit)

	resp, err := c.curator.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini curation failed: %w", err)
	}

	var result curationResult
	if err := decodeResponse(resp, &result); err != nil {
		return nil, err
	}
	return result.Picks, nil
}

func humorLine(h models.HumorStyle) string {
	switch h {
	case models.HumorPlayful:
		return "playful, lightly witty"
	case models.HumorUnhinged:
		return "absurdist, chaotic humor (keep products real)"
	default:
		return "sincere and warm"
	}
}

// decodeResponse extracts the first text part and unmarshals it, stripping
// markdown fences the model occasionally adds despite the JSON MIME type.
func decodeResponse(resp *genai.GenerateContentResponse, out any) error {
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return fmt.Errorf("no response candidates from gemini")
	}

	for _, part := range resp.Candidates[0].Content.Parts {
		txt, ok := part.(genai.Text)
		if !ok {
			continue
		}
		jsonStr := strings.TrimSpace(string(txt))
		jsonStr = strings.TrimPrefix(jsonStr, "```json")
		jsonStr = strings.TrimPrefix(jsonStr, "```")
		jsonStr = strings.TrimSuffix(jsonStr, "```")

		if err := json.Unmarshal([]byte(jsonStr), out); err != nil {
			return fmt.Errorf("failed to parse gemini response: %w", err)
		}
		return nil
	}
	return fmt.Errorf("no text part in response")
}
