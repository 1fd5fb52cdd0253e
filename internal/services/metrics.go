package services

import (
	"context"
	"fmt"
	"log"

	"github.com/redis/go-redis/v9"

	"github.com/sanjok-bless/multilingual-ai-tutor/internal/models"
)

// metricEndpoints are the logical endpoints counted in Redis.
var metricEndpoints = []string{"chat", "start", "languages"}

// MetricsService keeps request and token counters in Redis so they survive
// restarts and aggregate across replicas.
type MetricsService struct {
	redis *redis.Client
}

func NewMetricsService(redisClient *redis.Client) *MetricsService {
	return &MetricsService{redis: redisClient}
}

// RecordRequest counts one request against endpoint and adds its token usage.
// Best effort: counter failures are logged, never surfaced to the caller.
func (s *MetricsService) RecordRequest(ctx context.Context, endpoint string, tokens int) {
	pipe := s.redis.Pipeline()
	pipe.Incr(ctx, "metrics:requests:"+endpoint)
	if tokens > 0 {
		pipe.IncrBy(ctx, "metrics:tokens:"+endpoint, int64(tokens))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("failed to record metrics for %s: %v", endpoint, err)
	}
}

// Snapshot reads all counters.
func (s *MetricsService) Snapshot(ctx context.Context) (*models.MetricsResponse, error) {
	out := &models.MetricsResponse{
		Requests:   make(map[string]int64),
		TokensUsed: make(map[string]int64),
	}

	for _, endpoint := range metricEndpoints {
		requests, err := s.redis.Get(ctx, "metrics:requests:"+endpoint).Int64()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("read request counter for %s: %w", endpoint, err)
		}
		tokens, err := s.redis.Get(ctx, "metrics:tokens:"+endpoint).Int64()
		if err != nil && err != redis.Nil {
			return nil, fmt.Errorf("read token counter for %s: %w", endpoint, err)
		}
		out.Requests[endpoint] = requests
		out.TokensUsed[endpoint] = tokens
	}

	return out, nil
}
