package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tenderscan/internal/config"
	"tenderscan/internal/domain"

	"go.uber.org/zap"
)

const analysisPromptTemplate = `
Ты - опытный юрист с специализацией на договорном праве.
Проанализируй предоставленный текст договора и выполни следующие задачи:

1. Определи все существенные условия договора
2. Выяви потенциальные юридические риски для стороны, с которой был заключён тендер:
- Неясные формулировки
- Несбалансированные обязательства
- Проблемы с исполнимостью
- Возможные нарушения законодательства
3. Оцени, какие положения могут быть оспорены в суде
4. Определи, нуждается ли сторона в юридической помощи по этому договору

Текст договора:
%s

Предоставь развернутый анализ с конкретными примерами из текста.
Сначала кратко суммируй основные положения, затем детально разбери риски,
и в конце дай четкую рекомендацию о необходимости юридической помощи.
`

// Analyzer sends assembled contract text to the YandexGPT completion API and
// returns its free-form legal analysis.
type Analyzer struct {
	endpoint string
	apiKey   string
	folderID string
	client   *http.Client
	logger   *zap.Logger
}

func NewAnalyzer(cfg *config.Config, l *zap.Logger) *Analyzer {
	return &Analyzer{
		endpoint: cfg.LLMURL,
		apiKey:   cfg.LLMAPIKey,
		folderID: cfg.LLMFolderID,
		logger:   l,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

type completionRequest struct {
	ModelURI          string            `json:"modelUri"`
	CompletionOptions completionOptions `json:"completionOptions"`
	Messages          []message         `json:"messages"`
}

type completionOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   string  `json:"maxTokens"`
}

type message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type completionResponse struct {
	Result struct {
		Alternatives []struct {
			Message message `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

// Analyze runs the legal-analysis prompt over the contract text.
func (a *Analyzer) Analyze(ctx context.Context, contractText string) (string, error) {
	body, err := json.Marshal(completionRequest{
		ModelURI: fmt.Sprintf("gpt://%s/yandexgpt", a.folderID),
		CompletionOptions: completionOptions{
			Stream:      false,
			Temperature: 0.6,
			MaxTokens:   "5000",
		},
		Messages: []message{{Role: "user", Text: fmt.Sprintf(analysisPromptTemplate, contractText)}},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Api-Key "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: completion status %d", domain.ErrExternalService, resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrExternalService, err)
	}

	var parsed completionResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("%w: unexpected completion response: %v", domain.ErrExternalService, err)
	}
	if len(parsed.Result.Alternatives) == 0 {
		return "", fmt.Errorf("%w: completion returned no alternatives", domain.ErrExternalService)
	}
	return parsed.Result.Alternatives[0].Message.Text, nil
}
