package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDSN       string `mapstructure:"DB_DSN"`
	Environment string `mapstructure:"ENV"`
	Timezone    string `mapstructure:"CLINIC_TZ"`
	LockHours   int    `mapstructure:"CLINIC_LOCK_HOURS"`
	MoveHours   int    `mapstructure:"CLINIC_MOVE_HOURS"`
}

func Load() (*Config, error) {
	// Пытаемся загрузить .env файл (игнорируем ошибку, если файла нет)
	if err := godotenv.Load(".env"); err != nil {
		log.Println("⚠️  No .env file found, using environment variables")
	} else {
		log.Println("✅ Loaded configuration from .env file")
	}

	// Читаем напрямую из переменных окружения (после godotenv.Load они там)
	cfg := &Config{
		DBDSN:       os.Getenv("DB_DSN"),
		Environment: os.Getenv("ENV"),
		Timezone:    os.Getenv("CLINIC_TZ"),
	}

	// Устанавливаем дефолтные значения
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "UTC"
	}

	var err error
	if cfg.LockHours, err = intEnv("CLINIC_LOCK_HOURS", 3); err != nil {
		return nil, err
	}
	if cfg.MoveHours, err = intEnv("CLINIC_MOVE_HOURS", 24); err != nil {
		return nil, err
	}

	// Окно переноса обязано закрываться раньше окна записи
	if cfg.MoveHours < cfg.LockHours {
		return nil, fmt.Errorf("CLINIC_MOVE_HOURS must be >= CLINIC_LOCK_HOURS")
	}

	// Проверяем обязательные поля
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("DB_DSN is required but not set")
	}

	log.Printf("Config loaded\n")

	return cfg, nil
}

func (c *Config) GetDBDSN() string {
	return c.DBDSN
}

// Location возвращает часовой пояс, в котором живёт клиник-расписание
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// LockBefore возвращает окно закрытия записи как Duration
func (c *Config) LockBefore() time.Duration {
	return time.Duration(c.LockHours) * time.Hour
}

// MoveBefore возвращает окно закрытия переноса как Duration
func (c *Config) MoveBefore() time.Duration {
	return time.Duration(c.MoveHours) * time.Hour
}

func intEnv(name string, def int) (int, error) {
	raw := os.Getenv(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, err)
	}
	return v, nil
}
