// Package cli содержит общие помощники управляющих команд.
package cli

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/UkralStul/yatube/internal/app"
	"github.com/UkralStul/yatube/internal/config"
	"github.com/UkralStul/yatube/internal/storage"
)

// Env - окружение управляющей команды.
type Env struct {
	Config *config.Config
	Log    *slog.Logger
	Store  storage.Storage
}

// LoadConfig читает конфигурацию, значения флагов важнее окружения.
func LoadConfig(overrides map[string]string) (*config.Config, error) {
	cfg, err := config.LoadWithOverrides(overrides)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Open загружает конфигурацию и открывает хранилище. Непустой storageOverride заменяет STORAGE.
func Open(storageOverride string) (*Env, error) {
	cfg, err := LoadConfig(map[string]string{"STORAGE": storageOverride})
	if err != nil {
		return nil, err
	}
	log := app.NewLogger(cfg.Debug)
	if cfg.Storage == config.StorageMemory {
		log.Warn("memory storage lives only inside this process, changes will be lost")
	}

	store, err := app.OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	return &Env{Config: cfg, Log: log, Store: store}, nil
}

// Close закрывает хранилище.
func (e *Env) Close() {
	if err := e.Store.Close(); err != nil {
		e.Log.Error("failed to close storage", "error", err)
	}
}

// ParseID разбирает положительный целочисленный идентификатор.
func ParseID(flag, value string) (uint, error) {
	id, err := strconv.ParseUint(value, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("--%s must be a positive integer, got %q", flag, value)
	}
	return uint(id), nil
}

// ParseYes понимает значения yes/no, true/false и 1/0.
func ParseYes(flag, value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "no", "false", "0":
		return false, nil
	case "yes", "true", "1":
		return true, nil
	}
	return false, fmt.Errorf("--%s must be yes or no, got %q", flag, value)
}

// Require возвращает ошибку, если обязательный флаг пуст.
func Require(flag, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("--%s is required", flag)
	}
	return nil
}
