package gemini

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"github.com/podlove/podlove-backend/internal/config"
)

// compatibilityQuestions is the fixed, ordered question set the scoring
// prompt pairs with both users' positional answers. Order matters: answer
// i belongs to question i.
var compatibilityQuestions = []string{
	"What does an ideal weekend look like for you?",
	"How do you usually handle disagreements in a relationship?",
	"What role does family play in your life?",
	"What are you most passionate about right now?",
	"How important is physical activity and health to you?",
	"What does commitment mean to you?",
	"How do you like to show and receive affection?",
	"Where do you see yourself in five years?",
	"What is something you could never compromise on?",
	"How do you recharge after a stressful week?",
}

// scorePattern accepts only a bare numeric literal. Anything else the
// model produces is a scoring failure.
var scorePattern = regexp.MustCompile(`^\d+(\.\d+)?$`)

type Client struct {
	client   *genai.Client
	model    *genai.GenerativeModel
	embedder *genai.EmbeddingModel
	log      zerolog.Logger
}

func NewClient(cfg config.GeminiConfig, log zerolog.Logger) (*Client, error) {
	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	model := client.GenerativeModel(cfg.ChatModel)
	model.SetTemperature(0)

	return &Client{
		client:   client,
		model:    model,
		embedder: client.EmbeddingModel(cfg.EmbeddingModel),
		log:      log.With().Str("component", "gemini").Logger(),
	}, nil
}

func (c *Client) Close() {
	c.client.Close()
}

// Embed turns profile text into a fixed-length vector.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	res, err := c.embedder.EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to embed text: %w", err)
	}
	if res.Embedding == nil || len(res.Embedding.Values) == 0 {
		return nil, fmt.Errorf("embedding model returned no values")
	}
	return res.Embedding.Values, nil
}

// ScorePair asks the model for a single 0-100 compatibility number for two
// questionnaire answer sets. A malformed model response is returned as an
// error; callers on the matching path degrade it to a zero score.
func (c *Client) ScorePair(ctx context.Context, answersA, answersB []string) (float64, error) {
	prompt := BuildCompatibilityPrompt(answersA, answersB)

	resp, err := c.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return 0, fmt.Errorf("failed to generate compatibility score: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return 0, fmt.Errorf("no content generated")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}

	score, err := ParseScore(sb.String())
	if err != nil {
		c.log.Warn().Err(err).Str("output", sb.String()).Msg("compatibility score parse failed")
		return 0, err
	}
	return score, nil
}

// BuildCompatibilityPrompt pairs each fixed question with both users'
// positional answers. Missing answers are rendered as "(no answer)" so the
// pairing stays positional.
func BuildCompatibilityPrompt(answersA, answersB []string) string {
	var sb strings.Builder
	sb.WriteString("You are a relationship compatibility analyst for a dating service.\n")
	sb.WriteString("Two people answered the same questionnaire. Rate their compatibility.\n\n")

	for i, q := range compatibilityQuestions {
		sb.WriteString(fmt.Sprintf("Question %d: %s\n", i+1, q))
		sb.WriteString(fmt.Sprintf("Person A: %s\n", answerAt(answersA, i)))
		sb.WriteString(fmt.Sprintf("Person B: %s\n\n", answerAt(answersB, i)))
	}

	sb.WriteString("Respond with a single number between 0 and 100 representing their compatibility.\n")
	sb.WriteString("Your entire output must be that bare number with no other text, units or punctuation.")
	return sb.String()
}

func answerAt(answers []string, i int) string {
	if i >= len(answers) || strings.TrimSpace(answers[i]) == "" {
		return "(no answer)"
	}
	return answers[i]
}

// ParseScore validates the model output against the bare-numeric contract
// and clamps the value to [0, 100].
func ParseScore(raw string) (float64, error) {
	trimmed := strings.TrimSpace(raw)
	if !scorePattern.MatchString(trimmed) {
		return 0, fmt.Errorf("model output %q is not a bare number", trimmed)
	}
	score, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse score %q: %w", trimmed, err)
	}
	if score > 100 {
		score = 100
	}
	return score, nil
}
