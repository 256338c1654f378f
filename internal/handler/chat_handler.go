package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"pos-service/pkg/config"
	"pos-service/pkg/llm"
	"pos-service/pkg/logger"
	"pos-service/prometheus"
)

// Chat intents recognized from the question text.
const (
	intentRevenue     = "revenue"
	intentTopProducts = "top-products"
	intentUnknown     = "unknown"
)

const unknownIntentMessage = "Sorry, I couldn't understand the question. Try asking about revenue or top products."

var (
	analyticsBaseURL string
	analyticsClient  *http.Client
	llmClient        *llm.Client
)

// InitChat wires the chat endpoint's outbound collaborators: the
// analytics endpoints of this same service and the external LLM API.
func InitChat(cfg *config.Config, client *llm.Client) {
	analyticsBaseURL = strings.TrimRight(cfg.Analytics.BaseURL, "/")
	analyticsClient = &http.Client{Timeout: cfg.Analytics.Timeout}
	llmClient = client
}

// ChatRequest is a free-text analytics question with an optional window
// and result count.
type ChatRequest struct {
	Question string     `json:"question"`
	Start    *time.Time `json:"start"`
	End      *time.Time `json:"end"`
	Take     *int       `json:"take"`
}

// ChatResponse carries the AI-produced answer plus the raw structured
// data it was derived from.
type ChatResponse struct {
	Answer string      `json:"answer"`
	Data   interface{} `json:"data"`
}

// detectIntent classifies the lower-cased question by substring.
func detectIntent(question string) string {
	q := strings.ToLower(question)
	if strings.Contains(q, "revenue") || strings.Contains(q, "sales") || strings.Contains(q, "income") {
		return intentRevenue
	}
	if strings.Contains(q, "top") && strings.Contains(q, "product") {
		return intentTopProducts
	}
	return intentUnknown
}

// getAnalytics calls one of this service's own analytics endpoints with
// the caller's bearer token, re-authenticating as the caller.
func getAnalytics(c echo.Context, path string, params url.Values, out interface{}) error {
	token, _ := c.Get("bearer_token").(string)

	req, err := http.NewRequestWithContext(c.Request().Context(), "GET",
		analyticsBaseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := analyticsClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("analytics returned status %d", resp.StatusCode)
	}
	return json.Unmarshal(body, out)
}

// Ask answers a natural-language question about the caller's sales data.
// Recognized intents query the analytics endpoints and pass the rendered
// summary through the external LLM; unknown questions short-circuit with
// a guidance message and no outbound calls.
func Ask(c echo.Context) error {
	log := logger.FromContext(c)

	if _, err := EffectiveOwnerID(c); err != nil {
		return scopeError(c, err)
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request data"})
	}

	intent := detectIntent(req.Question)
	prometheus.RecordChatIntent(intent)

	if intent == intentUnknown {
		log.Info("Unrecognized chat question")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": unknownIntentMessage})
	}

	end := time.Now().UTC()
	if req.End != nil {
		end = *req.End
	}
	start := end.AddDate(0, 0, -7)
	if req.Start != nil {
		start = *req.Start
	}
	take := 5
	if req.Take != nil && *req.Take > 0 {
		take = *req.Take
	}

	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))

	var sentence string
	var data interface{}

	switch intent {
	case intentRevenue:
		var revenue RevenueResponse
		if err := getAnalytics(c, "/api/analytics/revenue", params, &revenue); err != nil {
			log.Error("Analytics revenue call failed", zap.Error(err))
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to query analytics"})
		}
		sentence = fmt.Sprintf("Revenue from %s to %s is %.0f %s.",
			start.Format("2006-01-02"), end.Format("2006-01-02"), revenue.Total, revenue.Currency)
		data = revenue

	case intentTopProducts:
		params.Set("take", fmt.Sprintf("%d", take))
		var top []TopProductResponse
		if err := getAnalytics(c, "/api/analytics/top-products", params, &top); err != nil {
			log.Error("Analytics top-products call failed", zap.Error(err))
			return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to query analytics"})
		}
		parts := make([]string, 0, len(top))
		for _, p := range top {
			parts = append(parts, fmt.Sprintf("%s (%.0f)", p.Name, p.Revenue))
		}
		sentence = fmt.Sprintf("Top %d products: %s.", take, strings.Join(parts, ", "))
		data = top
	}

	answer, err := llmClient.Summarize(c.Request().Context(), sentence)
	if err != nil {
		log.Error("LLM summarization failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "failed to generate answer"})
	}

	log.Info("Chat question answered", zap.String("intent", intent))
	return c.JSON(http.StatusOK, ChatResponse{Answer: answer, Data: data})
}
