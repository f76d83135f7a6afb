/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"bet-engine-go/internal/models"
)

func Load() (*models.Config, error) {
	idleTimeout, err := getEnvDuration("SESSION_IDLE_TIMEOUT", 10*time.Minute)
	if err != nil {
		return nil, err
	}

	sweepInterval, err := getEnvDuration("SESSION_SWEEP_INTERVAL", 1*time.Minute)
	if err != nil {
		return nil, err
	}

	rateWindow, err := getEnvDuration("RATE_LIMIT_WINDOW", 1*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxLifetime, err := getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute)
	if err != nil {
		return nil, err
	}

	connMaxIdleTime, err := getEnvDuration("DB_CONN_MAX_IDLE_TIME", 30*time.Second)
	if err != nil {
		return nil, err
	}

	pingTimeout, err := getEnvDuration("DB_PING_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	assistantTimeout, err := getEnvDuration("ASSISTANT_TIMEOUT", 20*time.Second)
	if err != nil {
		return nil, err
	}

	winProbability, err := getEnvFloat("BET_WIN_PROBABILITY", 0.10)
	if err != nil {
		return nil, err
	}

	houseEdge, err := getEnvFloat("BET_HOUSE_EDGE", 0.05)
	if err != nil {
		return nil, err
	}

	return &models.Config{
		Database: models.DatabaseConfig{
			Path:            getEnvString("DATABASE_PATH", "betting.db"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: connMaxLifetime,
			ConnMaxIdleTime: connMaxIdleTime,
			PingTimeout:     pingTimeout,
		},
		Session: models.SessionConfig{
			IdleTimeout:   idleTimeout,
			SweepInterval: sweepInterval,
		},
		Betting: models.BettingConfig{
			WinProbability: winProbability,
			HouseEdge:      houseEdge,
			MinStake:       getEnvString("BET_MIN_STAKE", "1"),
			MaxStake:       getEnvString("BET_MAX_STAKE", "10000"),
			CurrenciesFile: getEnvString("CURRENCIES_FILE", "currencies.yaml"),
		},
		RateLimit: models.RateLimitConfig{
			Window:     rateWindow,
			FlowLimit:  getEnvInt("RATE_LIMIT_FLOW", 10),
			BetLimit:   getEnvInt("RATE_LIMIT_BET", 10),
			AdminLimit: getEnvInt("RATE_LIMIT_ADMIN", 30),
		},
		Metrics: models.MetricsConfig{
			Port: getEnvString("METRICS_PORT", "9090"),
		},
		Assistant: models.AssistantConfig{
			APIKey:       getEnvString("ASSISTANT_API_KEY", ""),
			Model:        getEnvString("ASSISTANT_MODEL", "gpt-4o-mini"),
			BaseURL:      getEnvString("ASSISTANT_BASE_URL", "https://api.openai.com/v1"),
			VoiceAPIKey:  getEnvString("VOICE_API_KEY", ""),
			VoiceBaseURL: getEnvString("VOICE_BASE_URL", "https://api.elevenlabs.io/v1"),
			Timeout:      assistantTimeout,
		},
	}, nil
}

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	if value := os.Getenv(key); value != "" {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return 0, fmt.Errorf("invalid duration for %s: %q (%w)", key, value, err)
		}
		return duration, nil
	}
	return defaultValue, nil
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) (float64, error) {
	if value := os.Getenv(key); value != "" {
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid number for %s: %q (%w)", key, value, err)
		}
		return floatValue, nil
	}
	return defaultValue, nil
}
