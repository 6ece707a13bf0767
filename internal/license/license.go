// Package license tracks free-tier usage and premium activation.
package license

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

// MasterKeyVar is the env file entry holding the activation key.
const MasterKeyVar = "MASTER_LICENSE_KEY"

// DefaultMaxFreeUses is the free-tier run allowance.
const DefaultMaxFreeUses = 5

// Unlimited is what Remaining returns for a premium license.
const Unlimited = -1

var (
	ErrNoMasterKey = errors.New("master license key not configured")
	ErrInvalidKey  = errors.New("invalid license key")
)

// Data is the persisted license state.
type Data struct {
	DeviceID       string `json:"device_id"`
	UsesCount      int    `json:"uses_count"`
	FirstUseDate   string `json:"first_use_date,omitempty"`
	PremiumLicense bool   `json:"premium_license"`
	LicenseKeyHash string `json:"license_key_hash,omitempty"`
	LicenseDate    string `json:"license_date,omitempty"`
}

// Options configures a Manager.
type Options struct {
	DataFile    string
	EnvFile     string
	MaxFreeUses int
	Logger      zerolog.Logger
}

// Status is a point-in-time view of the license.
type Status struct {
	DeviceID     string `json:"device_id"`
	Premium      bool   `json:"premium"`
	UsesCount    int    `json:"uses_count"`
	MaxFreeUses  int    `json:"max_free_uses"`
	Remaining    int    `json:"remaining"`
	FirstUseDate string `json:"first_use_date,omitempty"`
	LicenseDate  string `json:"license_date,omitempty"`
}

// Manager gates runs on the free-tier allowance. It is safe for concurrent use.
type Manager struct {
	mu       sync.Mutex
	dataFile string
	envFile  string
	maxFree  int
	data     Data
	logger   zerolog.Logger
	now      func() time.Time
}

// Open loads the data file, starting fresh when it is missing or unreadable JSON.
func Open(opts Options) (*Manager, error) {
	if opts.DataFile == "" {
		return nil, fmt.Errorf("license data file is required")
	}
	if opts.MaxFreeUses < 0 {
		return nil, fmt.Errorf("max free uses must not be negative")
	}

	m := &Manager{
		dataFile: opts.DataFile,
		envFile:  opts.EnvFile,
		maxFree:  opts.MaxFreeUses,
		logger:   opts.Logger.With().Str("component", "license").Logger(),
		now:      time.Now,
	}

	raw, err := os.ReadFile(opts.DataFile)
	switch {
	case os.IsNotExist(err):
		m.data = freshData()
	case err != nil:
		return nil, fmt.Errorf("failed to read license data: %w", err)
	default:
		if err := json.Unmarshal(raw, &m.data); err != nil {
			m.logger.Warn().Err(err).Str("path", opts.DataFile).Msg("license data unreadable, starting fresh")
			m.data = freshData()
		}
		if m.data.DeviceID == "" {
			m.data.DeviceID = uuid.New().String()
		}
	}
	return m, nil
}

func freshData() Data {
	return Data{DeviceID: uuid.New().String()}
}

// CanUse reports whether another run may start.
func (m *Manager) CanUse() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.PremiumLicense || m.data.UsesCount < m.maxFree
}

// IncrementUsage counts one run. Premium licenses are not counted.
func (m *Manager) IncrementUsage() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data.PremiumLicense {
		return nil
	}
	m.data.UsesCount++
	if m.data.FirstUseDate == "" {
		m.data.FirstUseDate = m.now().Format(time.RFC3339)
	}
	m.logger.Debug().Int("uses", m.data.UsesCount).Int("max", m.maxFree).Msg("usage recorded")
	return m.saveLocked()
}

// Remaining returns the free runs left, or Unlimited for premium.
func (m *Manager) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remainingLocked()
}

func (m *Manager) remainingLocked() int {
	if m.data.PremiumLicense {
		return Unlimited
	}
	return max(0, m.maxFree-m.data.UsesCount)
}

// IsPremium reports whether a license has been activated.
func (m *Manager) IsPremium() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.data.PremiumLicense
}

// Status returns a snapshot of the license state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		DeviceID:     m.data.DeviceID,
		Premium:      m.data.PremiumLicense,
		UsesCount:    m.data.UsesCount,
		MaxFreeUses:  m.maxFree,
		Remaining:    m.remainingLocked(),
		FirstUseDate: m.data.FirstUseDate,
		LicenseDate:  m.data.LicenseDate,
	}
}

// Activate unlocks premium when key matches the master key in the env file.
// Only a bcrypt hash of the key is stored.
func (m *Manager) Activate(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.data.PremiumLicense && m.data.LicenseKeyHash != "" &&
		bcrypt.CompareHashAndPassword([]byte(m.data.LicenseKeyHash), []byte(key)) == nil {
		return nil
	}

	master, err := m.masterKey()
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(key), []byte(master)) != 1 {
		m.logger.Warn().Msg("license activation rejected")
		return ErrInvalidKey
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash license key: %w", err)
	}
	m.data.PremiumLicense = true
	m.data.LicenseKeyHash = string(hash)
	m.data.LicenseDate = m.now().Format(time.RFC3339)
	if err := m.saveLocked(); err != nil {
		return err
	}
	m.logger.Info().Str("device_id", m.data.DeviceID).Msg("premium license activated")
	return nil
}

func (m *Manager) masterKey() (string, error) {
	if m.envFile == "" {
		return "", ErrNoMasterKey
	}
	env, err := godotenv.Read(m.envFile)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNoMasterKey, err)
	}
	master := strings.TrimSpace(env[MasterKeyVar])
	if master == "" {
		return "", fmt.Errorf("%w: %s not set in %s", ErrNoMasterKey, MasterKeyVar, m.envFile)
	}
	return master, nil
}

func (m *Manager) saveLocked() error {
	data, err := json.MarshalIndent(m.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal license data: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(m.dataFile), 0o700); err != nil {
		return fmt.Errorf("failed to create license directory: %w", err)
	}
	if err := os.WriteFile(m.dataFile, data, 0o600); err != nil {
		return fmt.Errorf("failed to write license data: %w", err)
	}
	return nil
}
