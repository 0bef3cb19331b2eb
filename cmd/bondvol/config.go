package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	TokenFile    string
	ClientID     string
	ClientSecret string
	BaseURL      string
	TokenURL     string

	CalendarName string
	OffsetBDays  int
	Instrument   string

	DatabaseURL string
	CronSpec    string
	HTTPPort    string
	Location    string
	EncodingKey string
}

func LoadConfig() (Config, error) {
	if err := godotenv.Overload(); err != nil {
		log.Println(errors.New("no .env file, using process environment"))
	}

	cfg := Config{
		TokenFile:    "anbimaAuth.json",
		CalendarName: "ANBIMA",
		OffsetBDays:  10,
		Instrument:   "LTN",
		HTTPPort:     "8080",
		Location:     "America/Sao_Paulo",
	}

	if v := strings.TrimSpace(os.Getenv("ANBIMA_TOKEN_FILE")); v != "" {
		cfg.TokenFile = v
	}
	cfg.ClientID = strings.TrimSpace(os.Getenv("ANBIMA_CLIENT_ID"))
	cfg.ClientSecret = strings.TrimSpace(os.Getenv("ANBIMA_CLIENT_SECRET"))
	cfg.BaseURL = strings.TrimSpace(os.Getenv("ANBIMA_BASE_URL"))
	cfg.TokenURL = strings.TrimSpace(os.Getenv("ANBIMA_TOKEN_URL"))

	if v := strings.TrimSpace(os.Getenv("CALENDAR")); v != "" {
		cfg.CalendarName = v
	}
	if v := strings.TrimSpace(os.Getenv("OFFSET_BDAYS")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("OFFSET_BDAYS must be a positive integer, got %q", v)
		}
		cfg.OffsetBDays = n
	}
	if v := strings.TrimSpace(os.Getenv("INSTRUMENT_TYPE")); v != "" {
		cfg.Instrument = v
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.CronSpec = strings.TrimSpace(os.Getenv("CRON_SPEC"))
	cfg.EncodingKey = strings.TrimSpace(os.Getenv("ENCODING_KEY"))

	if p := strings.TrimSpace(os.Getenv("PORT")); p != "" {
		cfg.HTTPPort = p
	}
	if l := strings.TrimSpace(os.Getenv("LOCATION")); l != "" {
		cfg.Location = l
	}

	if cfg.CronSpec != "" {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("CRON_SPEC requires DATABASE_URL")
		}
		if cfg.EncodingKey == "" {
			return Config{}, fmt.Errorf("CRON_SPEC requires ENCODING_KEY")
		}
	}

	return cfg, nil
}
