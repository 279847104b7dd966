package ai

import (
	"strings"
	"testing"

	"github.com/selivandex/crypto-digest/pkg/models"
	"github.com/selivandex/crypto-digest/pkg/templates"
)

// TestSystemPromptConstraints verifies the fixed instruction keeps its guard rails
func TestSystemPromptConstraints(t *testing.T) {
	required := []string{
		"must NOT include any URLs",
		"newspaper",
		"Coin: {coin_name}",
		"7d Change: {7d_change}%",
	}

	for _, phrase := range required {
		if !strings.Contains(systemPrompt, phrase) {
			t.Errorf("System prompt missing %q", phrase)
		}
	}
}

// TestBuildPromptFromTemplate tests user prompt rendering
func TestBuildPromptFromTemplate(t *testing.T) {
	renderer, err := templates.Default()
	if err != nil {
		t.Fatalf("Failed to load templates: %v", err)
	}

	prompt, err := BuildPrompt(renderer, models.SummaryRequest{
		Quote: models.AssetQuote{Name: "Ethereum", Symbol: "ETH", PercentChange24h: -3.456, PercentChange7d: 0},
		News:  []string{models.NoNewsFound},
	})
	if err != nil {
		t.Fatalf("Failed to build prompt: %v", err)
	}

	checks := []string{
		"Coin: Ethereum",
		"Symbol: ETH",
		"24h Change: -3.46%",
		"7d Change: 0.00%",
		"Recent News:\nNo news found",
	}
	for _, check := range checks {
		if !strings.Contains(prompt, check) {
			t.Errorf("Prompt missing %q:\n%s", check, prompt)
		}
	}
}
