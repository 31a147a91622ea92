package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
)

// CallbackLog represents a structured callback event entry
type CallbackLog struct {
	Timestamp        time.Time `json:"timestamp"`
	Gateway          string    `json:"gateway"`
	OrderID          string    `json:"order_id"`
	StatusCode       string    `json:"status_code,omitempty"`
	TransactionID    string    `json:"transaction_id,omitempty"`
	RequestID        string    `json:"request_id"`
	SignatureValid   bool      `json:"signature_valid"`
	Reconciliation   string    `json:"reconciliation,omitempty"`
	Flagged          bool      `json:"flagged"`
	Outcome          string    `json:"outcome,omitempty"`
	FromState        string    `json:"from_state,omitempty"`
	ToState          string    `json:"to_state,omitempty"`
	Amount           string    `json:"amount,omitempty"`
	Currency         string    `json:"currency,omitempty"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	Error            string    `json:"error,omitempty"`
}

// Logger handles OpenSearch logging operations
type Logger struct {
	client *Client
}

// NewLogger creates a new OpenSearch logger
func NewLogger(client *Client) *Logger {
	return &Logger{
		client: client,
	}
}

// LogCallback logs a processed callback event to OpenSearch
func (l *Logger) LogCallback(ctx context.Context, log CallbackLog) error {
	if !l.client.IsEnabled() {
		return nil // Logging disabled
	}

	if log.Timestamp.IsZero() {
		log.Timestamp = time.Now()
	}

	if log.RequestID == "" {
		log.RequestID = uuid.New().String()
	}

	indexName := l.client.GetEventIndexName(log.Gateway)

	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch error: %s", res.String())
	}

	return nil
}

// SearchCallbacks searches callback events for a gateway based on criteria
func (l *Logger) SearchCallbacks(ctx context.Context, gateway string, query map[string]any) ([]CallbackLog, error) {
	if !l.client.IsEnabled() {
		return nil, fmt.Errorf("logging is disabled")
	}

	indexName := l.client.GetEventIndexName(gateway)

	searchQuery := map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"timestamp": map[string]string{"order": "desc"}},
		},
		"size": 100,
	}

	queryJSON, err := json.Marshal(searchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	req := opensearchapi.SearchRequest{
		Index: []string{indexName},
		Body:  bytes.NewReader(queryJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("opensearch search error: %s", res.String())
	}

	var searchResult struct {
		Hits struct {
			Hits []struct {
				Source CallbackLog `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}

	if err := json.NewDecoder(res.Body).Decode(&searchResult); err != nil {
		return nil, fmt.Errorf("failed to decode search results: %w", err)
	}

	logs := make([]CallbackLog, len(searchResult.Hits.Hits))
	for i, hit := range searchResult.Hits.Hits {
		logs[i] = hit.Source
	}

	return logs, nil
}

// GetOrderEvents retrieves callback events for a specific order
func (l *Logger) GetOrderEvents(ctx context.Context, gateway, orderID string) ([]CallbackLog, error) {
	query := map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{
				{"term": map[string]any{"order_id": orderID}},
			},
		},
	}

	return l.SearchCallbacks(ctx, gateway, query)
}

// GetRecentMismatches retrieves recently flagged callback events for a gateway
func (l *Logger) GetRecentMismatches(ctx context.Context, gateway string, hours int) ([]CallbackLog, error) {
	query := map[string]any{
		"bool": map[string]any{
			"must": []map[string]any{
				{"term": map[string]any{"flagged": true}},
				{"range": map[string]any{
					"timestamp": map[string]any{
						"gte": fmt.Sprintf("now-%dh", hours),
					},
				}},
			},
		},
	}

	return l.SearchCallbacks(ctx, gateway, query)
}

// LogSystemEvent logs a system event to OpenSearch
func (l *Logger) LogSystemEvent(ctx context.Context, log any) error {
	if !l.client.IsEnabled() {
		return nil // Logging disabled
	}

	indexName := "paybridge-system-logs"

	logJSON, err := json.Marshal(log)
	if err != nil {
		return fmt.Errorf("failed to marshal system log: %w", err)
	}

	req := opensearchapi.IndexRequest{
		Index: indexName,
		Body:  bytes.NewReader(logJSON),
	}

	res, err := req.Do(ctx, l.client.GetClient())
	if err != nil {
		return fmt.Errorf("failed to index system log: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("opensearch system log error: %s", res.String())
	}

	return nil
}
