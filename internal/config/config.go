// Package config loads daemon configuration from the environment, with
// optional .env and beneficiary-manifest files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all raffled settings.
type Config struct {
	Service struct {
		Name      string `env:"SERVICE_NAME,default=raffled"`
		LogLevel  string `env:"LOG_LEVEL,default=info"`
		LogFormat string `env:"LOG_FORMAT,default=text"`
	}

	HTTP struct {
		Addr         string        `env:"HTTP_ADDR,default=:8080"`
		ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=10s"`
		WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=10s"`
	}

	Raffle struct {
		EntranceFee          int64         `env:"RAFFLE_ENTRANCE_FEE,default=10000000"`
		Duration             time.Duration `env:"RAFFLE_DURATION,default=24h"`
		Jackpot              int64         `env:"RAFFLE_JACKPOT,default=1000000000"`
		Account              string        `env:"RAFFLE_ACCOUNT,default=raffle-pool"`
		Funder               string        `env:"RAFFLE_FUNDER,default=raffle-funder"`
		FunderBalance        int64         `env:"RAFFLE_FUNDER_BALANCE,default=1000000000"`
		Charity1             string        `env:"RAFFLE_CHARITY_1,default=charity-1"`
		Charity2             string        `env:"RAFFLE_CHARITY_2,default=charity-2"`
		Charity3             string        `env:"RAFFLE_CHARITY_3,default=charity-3"`
		RequestConfirmations uint16        `env:"RAFFLE_REQUEST_CONFIRMATIONS,default=3"`
	}

	Scheduler struct {
		UpkeepSchedule string `env:"UPKEEP_SCHEDULE,default=@every 30s"`
	}

	Database struct {
		// URL enables the Postgres cycle-history store when set.
		URL string `env:"DATABASE_URL,default="`
	}

	// BeneficiaryManifest optionally points to a YAML file naming the
	// three charities.
	BeneficiaryManifest string `env:"BENEFICIARY_MANIFEST,default="`
}

// Load reads .env (when present) and decodes the environment.
func Load() (*Config, error) {
	// .env is optional; ignore a missing file
	_ = godotenv.Load()

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode environment: %w", err)
	}
	if cfg.Raffle.EntranceFee <= 0 {
		return nil, fmt.Errorf("RAFFLE_ENTRANCE_FEE must be positive")
	}
	if cfg.Raffle.Duration <= 0 {
		return nil, fmt.Errorf("RAFFLE_DURATION must be positive")
	}
	return &cfg, nil
}

// Beneficiary names one charity account.
type Beneficiary struct {
	Name    string `yaml:"name"`
	Address string `yaml:"address"`
}

type beneficiaryManifest struct {
	Beneficiaries []Beneficiary `yaml:"beneficiaries"`
}

// LoadBeneficiaries parses a beneficiary manifest. The manifest must name
// exactly three charities; their addresses override the env-configured
// ones.
func LoadBeneficiaries(path string) ([]Beneficiary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read beneficiary manifest: %w", err)
	}

	var manifest beneficiaryManifest
	if err := yaml.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("parse beneficiary manifest: %w", err)
	}
	if len(manifest.Beneficiaries) != 3 {
		return nil, fmt.Errorf("beneficiary manifest must name exactly 3 charities, got %d", len(manifest.Beneficiaries))
	}
	for i, b := range manifest.Beneficiaries {
		if b.Address == "" {
			return nil, fmt.Errorf("beneficiary %d: address is required", i+1)
		}
	}
	return manifest.Beneficiaries, nil
}
