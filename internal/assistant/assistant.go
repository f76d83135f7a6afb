package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"bet-engine-go/internal/models"

	"go.uber.org/zap"
)

// Service wraps the chat-completion and text-to-speech APIs used to
// decorate replies. Both are best-effort: a missing key or a failed
// call degrades to plain text, never to an error shown to the user.
type Service struct {
	cfg    models.AssistantConfig
	client *http.Client
}

// Voice names offered to users, mapped to provider voice ids.
var voiceOptions = map[string]string{
	"Taylor Swift":          "21m00Tcm4TlvDq8ikWAM",
	"Morgan Freeman":        "9BWtwzW0fW0X0Y2Y0Y2Y0",
	"Arnold Schwarzenegger": "2EiwWnXFnvU5JabPnv8n",
	"Snoop Dogg":            "2EiwWnXFnvU5JabPnv8n",
	"Barack Obama":          "2EiwWnXFnvU5JabPnv8n",
	"Donald Trump":          "2EiwWnXFnvU5JabPnv8n",
	"Joe Rogan":             "2EiwWnXFnvU5JabPnv8n",
	"Elon Musk":             "2EiwWnXFnvU5JabPnv8n",
}

const defaultVoiceId = "21m00Tcm4TlvDq8ikWAM"

func NewService(cfg models.AssistantConfig) *Service {
	return &Service{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}
}

// AvailableVoices lists the selectable voice names in stable order.
func AvailableVoices() []string {
	voices := make([]string, 0, len(voiceOptions))
	for name := range voiceOptions {
		voices = append(voices, name)
	}
	sort.Strings(voices)
	return voices
}

func ValidVoice(name string) bool {
	_, ok := voiceOptions[name]
	return ok
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Ask sends a prompt to the chat API. Returns "" when the assistant is
// unconfigured or the call fails.
func (s *Service) Ask(ctx context.Context, system, prompt string) string {
	if s.cfg.APIKey == "" {
		return ""
	}

	payload, err := json.Marshal(chatRequest{
		Model: s.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
	})
	if err != nil {
		zap.L().Warn("Failed to encode assistant request", zap.Error(err))
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		zap.L().Warn("Failed to build assistant request", zap.Error(err))
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().Warn("Assistant call failed", zap.Error(err))
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("Assistant call returned non-200", zap.Int("status", resp.StatusCode))
		return ""
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		zap.L().Warn("Failed to decode assistant response", zap.Error(err))
		return ""
	}
	if len(decoded.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(decoded.Choices[0].Message.Content)
}

type speechRequest struct {
	Text          string        `json:"text"`
	ModelId       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// Speak renders text as audio in the user's preferred voice. Returns
// nil when speech is unconfigured or the call fails.
func (s *Service) Speak(ctx context.Context, text, voiceName string) []byte {
	if s.cfg.VoiceAPIKey == "" {
		return nil
	}

	voiceId, ok := voiceOptions[voiceName]
	if !ok {
		voiceId = defaultVoiceId
	}

	payload, err := json.Marshal(speechRequest{
		Text:    text,
		ModelId: "eleven_monolingual_v1",
		VoiceSettings: voiceSettings{
			Stability:       0.5,
			SimilarityBoost: 0.5,
		},
	})
	if err != nil {
		zap.L().Warn("Failed to encode speech request", zap.Error(err))
		return nil
	}

	url := fmt.Sprintf("%s/text-to-speech/%s", s.cfg.VoiceBaseURL, voiceId)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		zap.L().Warn("Failed to build speech request", zap.Error(err))
		return nil
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", s.cfg.VoiceAPIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		zap.L().Warn("Speech call failed", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		zap.L().Warn("Speech call returned non-200", zap.Int("status", resp.StatusCode))
		return nil
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		zap.L().Warn("Failed to read speech response", zap.Error(err))
		return nil
	}
	return audio
}

// FormatBetVoiceLine builds the spoken settlement summary.
func FormatBetVoiceLine(bet *models.Bet) string {
	betTypeFull := map[string]string{
		"ML":     "Money Line",
		"SPREAD": "Point Spread",
		"OVER":   "Over",
		"UNDER":  "Under",
		"TOTAL":  "Total Points",
	}[bet.BetType]
	if betTypeFull == "" {
		betTypeFull = bet.BetType
	}

	if bet.Outcome == models.OutcomeWin {
		return fmt.Sprintf("Congratulations! You won! %s %s for $%s. You earned $%s! Great job!",
			bet.Selection, betTypeFull, bet.Stake.StringFixed(0), bet.Payout.StringFixed(0))
	}
	return fmt.Sprintf("Better luck next time! %s %s for $%s didn't work out this time. Keep trying!",
		bet.Selection, betTypeFull, bet.Stake.StringFixed(0))
}
