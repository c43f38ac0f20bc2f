package config

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"
)

type EvaluatorConfig struct {
	Workers       int
	QueueSize     int
	Concurrency   int
	RubricDir     string
	StatsCacheTTL time.Duration
	JobTTL        time.Duration
}

var (
	evaluatorConfig *EvaluatorConfig
	evaluatorOnce   sync.Once
)

func LoadEvaluatorConfig() *EvaluatorConfig {
	evaluatorOnce.Do(func() {
		evaluatorConfig = &EvaluatorConfig{
			Workers:       intEnv("EVALUATOR_WORKERS", 4),
			QueueSize:     intEnv("EVALUATOR_QUEUE_SIZE", 256),
			Concurrency:   intEnv("EVALUATOR_CONCURRENCY", 4),
			RubricDir:     os.Getenv("EVALUATOR_RUBRIC_DIR"),
			StatsCacheTTL: durationEnv("EVALUATOR_STATS_CACHE_TTL", time.Minute),
			JobTTL:        durationEnv("EVALUATOR_JOB_TTL", time.Hour),
		}
	})
	return evaluatorConfig
}

func intEnv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		log.Printf("Warning: invalid %s=%q, defaulting to %d", key, v, def)
		return def
	}
	return n
}

func durationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		log.Printf("Warning: invalid %s=%q, defaulting to %s", key, v, def)
		return def
	}
	return d
}
