package config

import (
	"os"
	"strings"
	"sync"
	"time"
)

type UploadServiceConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

var (
	uploadServiceConfig *UploadServiceConfig
	uploadServiceOnce   sync.Once
)

func LoadUploadServiceConfig() *UploadServiceConfig {
	uploadServiceOnce.Do(func() {
		uploadServiceConfig = &UploadServiceConfig{
			BaseURL: strings.TrimRight(os.Getenv("UPLOAD_SERVICE_URL"), "/"),
			APIKey:  os.Getenv("UPLOAD_SERVICE_API_KEY"),
			Timeout: durationEnv("UPLOAD_SERVICE_TIMEOUT", 10*time.Second),
		}
	})
	return uploadServiceConfig
}
