package ledger

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// TestSlipPrefix marks slips created through investigation reports.
	TestSlipPrefix = "TEST-"
	// DefaultFileName is the ledger database inside the data directory.
	DefaultFileName = "ledger.db"
)

var (
	ErrNotFound     = errors.New("slip not found")
	ErrInvalidInput = errors.New("invalid slip")
)

// Slip is one shipping slip row.
type Slip struct {
	ID          string    `gorm:"primaryKey" json:"id"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	Status      string    `json:"status"`
	Note        string    `json:"note"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// NewSlip holds the caller-supplied fields of a slip to create.
type NewSlip struct {
	Origin      string
	Destination string
	Status      string
	Note        string
}

var seedSlips = []Slip{
	{ID: "12340", Origin: "Osaka, Osaka", Destination: "Fukuoka, Fukuoka", Status: "done", Note: "standard delivery"},
	{ID: "12345", Origin: "Tokyo, Chiyoda", Destination: "Nagoya, Aichi", Status: "done", Note: "precision equipment"},
}

// Ledger stores slips in SQLite.
type Ledger struct {
	db *gorm.DB
	// mu serializes ID allocation in Create.
	mu sync.Mutex
}

// Open opens or creates the ledger at path, migrates the schema and seeds the
// reference slips into an empty table.
func Open(path string) (*Ledger, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger %s: %w", path, err)
	}
	if err := db.AutoMigrate(&Slip{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.seed(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Ledger) seed() error {
	var count int64
	if err := l.db.Model(&Slip{}).Count(&count).Error; err != nil {
		return fmt.Errorf("count slips: %w", err)
	}
	if count > 0 {
		return nil
	}

	base := time.Now().Add(-time.Hour)
	rows := make([]Slip, len(seedSlips))
	for i, s := range seedSlips {
		s.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		rows[i] = s
	}
	if err := l.db.Create(&rows).Error; err != nil {
		return fmt.Errorf("seed slips: %w", err)
	}
	return nil
}

// Find returns the slip with the given ID.
func (l *Ledger) Find(ctx context.Context, id string) (Slip, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Slip{}, fmt.Errorf("%w: id is required", ErrInvalidInput)
	}

	var slip Slip
	err := l.db.WithContext(ctx).Where("id = ?", id).First(&slip).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Slip{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Slip{}, fmt.Errorf("find slip %s: %w", id, err)
	}
	return slip, nil
}

// Create stores a new test slip under the next TEST-nnnn ID.
func (l *Ledger) Create(ctx context.Context, in NewSlip) (Slip, error) {
	if strings.TrimSpace(in.Destination) == "" {
		return Slip{}, fmt.Errorf("%w: destination is required", ErrInvalidInput)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var slip Slip
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&Slip{}).Where("id LIKE ?", TestSlipPrefix+"%").Count(&existing).Error; err != nil {
			return err
		}
		slip = Slip{
			ID:          fmt.Sprintf("%s%04d", TestSlipPrefix, existing+1),
			Origin:      strings.TrimSpace(in.Origin),
			Destination: strings.TrimSpace(in.Destination),
			Status:      strings.TrimSpace(in.Status),
			Note:        strings.TrimSpace(in.Note),
			CreatedAt:   time.Now(),
		}
		return tx.Create(&slip).Error
	})
	if err != nil {
		return Slip{}, fmt.Errorf("create slip: %w", err)
	}
	return slip, nil
}

// List returns every slip in creation order.
func (l *Ledger) List(ctx context.Context) ([]Slip, error) {
	var slips []Slip
	if err := l.db.WithContext(ctx).Order("created_at asc, id asc").Find(&slips).Error; err != nil {
		return nil, fmt.Errorf("list slips: %w", err)
	}
	return slips, nil
}

// Close releases the underlying database handle.
func (l *Ledger) Close() error {
	sqlDB, err := l.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
