package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NarrativeKind selects what kind of text the collaborator generates.
type NarrativeKind string

const (
	KindSessionFeedback  NarrativeKind = "session-feedback"
	KindChallengeSummary NarrativeKind = "challenge-summary"
	KindProgressAnalysis NarrativeKind = "progress-analysis"
)

// Narrator turns numeric facts into prose. Implementations may fail or time
// out; callers fall back to FallbackFeedback and never surface the error to
// the end user.
type Narrator interface {
	Narrative(ctx context.Context, kind NarrativeKind, facts map[string]interface{}) (string, error)
}

// AIService is an OpenRouter-compatible chat-completions client.
type AIService struct {
	APIKey  string
	Model   string
	BaseURL string
	Client  *http.Client
}

func NewAIService(apiKey, model string) *AIService {
	return &AIService{
		APIKey:  apiKey,
		Model:   model,
		BaseURL: "https://openrouter.ai/api/v1",
		Client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (ai *AIService) Narrative(ctx context.Context, kind NarrativeKind, facts map[string]interface{}) (string, error) {
	system := "Ты — доброжелательный инструктор медитации. Отвечай кратко, на русском языке, без разметки."

	var prompt string
	switch kind {
	case KindSessionFeedback:
		prompt = fmt.Sprintf(
			"Пользователь завершил медитацию длительностью %v минут с оценкой %v/10. Комментарий: %v. Дай короткую поддерживающую обратную связь.",
			facts["duration"], facts["rating"], facts["comment"],
		)
	case KindChallengeSummary:
		prompt = fmt.Sprintf(
			"Марафон «%v» завершен. Выполнено дней: %v из %v, всего медитаций: %v, средняя оценка: %v/10. Подведи личный итог участника в 2-3 предложениях.",
			facts["title"], facts["completed_days"], facts["total_days"], facts["sessions_count"], facts["avg_rating"],
		)
	case KindProgressAnalysis:
		prompt = fmt.Sprintf(
			"Статистика практики: медитаций — %v, общее время — %v минут, средняя оценка — %v/10, серия — %v дней, тренд оценок — %v. Вопрос пользователя: %v. Ответь как личный инструктор.",
			facts["sessions_count"], facts["total_duration"], facts["avg_rating"], facts["streak"], facts["trend"], facts["question"],
		)
	default:
		return "", fmt.Errorf("unknown narrative kind %q", kind)
	}

	return ai.complete(ctx, system, prompt)
}

const parseEntryPrompt = `Разбери сообщение пользователя о проведенной медитации и верни строго JSON без пояснений:
{"date": "YYYY-MM-DD", "time": "HH:MM", "duration": <минуты>, "rating": <1-10 или null>, "comment": "<краткое описание или пустая строка>", "confidence": <true|false>}
Если из сообщения нельзя понять дату, время или продолжительность — поставь confidence в false.
Сегодня: %s. Сообщение: %s`

type parsedEntry struct {
	Date       string `json:"date"`
	Time       string `json:"time"`
	Duration   int    `json:"duration"`
	Rating     *int   `json:"rating"`
	Comment    string `json:"comment"`
	Confidence bool   `json:"confidence"`
}

// ParseEntry extracts a session candidate from a free-text description. The
// result is untrusted: the caller validates it and asks the user to confirm
// before anything is stored.
func (ai *AIService) ParseEntry(ctx context.Context, text string) (*SessionCandidate, error) {
	now := time.Now()
	prompt := fmt.Sprintf(parseEntryPrompt, now.Format("2006-01-02"), text)

	raw, err := ai.complete(ctx, "Ты извлекаешь структурированные данные из текста.", prompt)
	if err != nil {
		return nil, err
	}

	var entry parsedEntry
	if err := json.Unmarshal([]byte(extractJSON(raw)), &entry); err != nil {
		return nil, ErrInvalidEntry
	}
	if !entry.Confidence {
		return nil, ErrInvalidEntry
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", entry.Date+" "+entry.Time, now.Location())
	if err != nil {
		return nil, ErrInvalidEntry
	}

	candidate := &SessionCandidate{
		StartTime: start,
		Duration:  entry.Duration,
		Comment:   entry.Comment,
		Rating:    entry.Rating,
	}
	if err := candidate.Validate(now); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (ai *AIService) complete(ctx context.Context, system, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: ai.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ai.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+ai.APIKey)

	resp, err := ai.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ai service returned status %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("ai service returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}

// FallbackFeedback is the fixed-category substitute used when the narrative
// generator fails; keyed only on the rating bucket.
func FallbackFeedback(rating int) string {
	switch {
	case rating >= 8:
		return "Отличная практика! Продолжайте в том же духе 🧘"
	case rating >= 5:
		return "Хорошая работа. Регулярность важнее идеальных сессий."
	default:
		return "Не каждая медитация дается легко — это нормально. Завтра будет лучше."
	}
}

// extractJSON trims any prose the model wrapped around the JSON object.
func extractJSON(s string) string {
	start := -1
	depth := 0
	for i, r := range s {
		switch r {
		case '{':
			if start == -1 {
				start = i
			}
			depth++
		case '}':
			if start != -1 {
				depth--
				if depth == 0 {
					return s[start : i+1]
				}
			}
		}
	}
	return s
}
