package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v2"
)

type CurrencyConfig struct {
	Symbol      string `yaml:"symbol"`
	Name        string `yaml:"name"`
	Network     string `yaml:"network"`
	MinDeposit  string `yaml:"min_deposit"`
	MinWithdraw string `yaml:"min_withdraw"`
}

type CurrenciesConfig struct {
	Currencies []CurrencyConfig `yaml:"currencies"`
}

func LoadCurrencyConfig(currenciesFile string) ([]CurrencyConfig, error) {
	var currenciesPath string
	if filepath.IsAbs(currenciesFile) {
		currenciesPath = currenciesFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		currenciesPath = filepath.Join(wd, currenciesFile)
	}

	data, err := os.ReadFile(currenciesPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", currenciesFile, err)
	}

	var config CurrenciesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", currenciesFile, err)
	}

	for i, currency := range config.Currencies {
		if currency.Symbol == "" {
			return nil, fmt.Errorf("currency at index %d missing symbol", i)
		}
		if currency.Network == "" {
			return nil, fmt.Errorf("currency at index %d missing network", i)
		}
		if _, err := decimal.NewFromString(currency.MinDeposit); err != nil {
			return nil, fmt.Errorf("currency %s has invalid min_deposit: %w", currency.Symbol, err)
		}
		if _, err := decimal.NewFromString(currency.MinWithdraw); err != nil {
			return nil, fmt.Errorf("currency %s has invalid min_withdraw: %w", currency.Symbol, err)
		}
	}

	return config.Currencies, nil
}

func CurrencySymbols(currencies []CurrencyConfig) []string {
	symbols := make([]string, len(currencies))
	for i, currency := range currencies {
		symbols[i] = currency.Symbol
	}
	return symbols
}

func FindCurrency(currencies []CurrencyConfig, symbol string) (*CurrencyConfig, bool) {
	for i := range currencies {
		if currencies[i].Symbol == symbol {
			return &currencies[i], true
		}
	}
	return nil, false
}
