package store

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pftrack/pftrack/internal/domain"
)

// Duplicate match windows.
const (
	dupDateToleranceDays = 1
	dupAmountTolerance   = 0.01
)

// ManualStore persists manually entered transactions in a JSON file.
// Every mutation writes the file back immediately.
type ManualStore struct {
	mu     sync.Mutex
	path   string
	txns   []*domain.Transaction
	logger *zap.Logger
}

// OpenManualStore loads the file or starts empty when it does not
// exist. A corrupt file is an error rather than silent data loss.
func OpenManualStore(path string, logger *zap.Logger) (*ManualStore, error) {
	s := &ManualStore{path: path, logger: logger}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return s, nil
	}
	if err != nil {
		return nil, &domain.ErrConfig{Source: path, Reason: "cannot read manual transactions"}
	}
	if err := json.Unmarshal(data, &s.txns); err != nil {
		return nil, &domain.ErrConfig{Source: path, Reason: "manual transactions file is not valid JSON"}
	}
	return s, nil
}

// All returns a copy of the stored transactions.
func (s *ManualStore) All() []*domain.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*domain.Transaction, len(s.txns))
	copy(out, s.txns)
	return out
}

// Add stores a new manual transaction and assigns it an ID.
func (s *ManualStore) Add(tx *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tx.ID == "" {
		tx.ID = uuid.New().String()
	}
	s.txns = append(s.txns, tx)
	if err := s.save(); err != nil {
		s.txns = s.txns[:len(s.txns)-1]
		return nil, err
	}
	s.logger.Info("manual transaction added", zap.String("id", tx.ID), zap.String("description", tx.Description))
	return tx, nil
}

// Update replaces the stored transaction with the same ID.
func (s *ManualStore) Update(tx *domain.Transaction) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(tx.ID)
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "manual transaction", ID: tx.ID}
	}

	prev := s.txns[idx]
	s.txns[idx] = tx
	if err := s.save(); err != nil {
		s.txns[idx] = prev
		return nil, err
	}
	return tx, nil
}

// Delete removes the transaction with the given ID.
func (s *ManualStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return &domain.ErrNotFound{Resource: "manual transaction", ID: id}
	}

	removed := s.txns[idx]
	s.txns = append(s.txns[:idx], s.txns[idx+1:]...)
	if err := s.save(); err != nil {
		s.txns = append(s.txns[:idx], append([]*domain.Transaction{removed}, s.txns[idx:]...)...)
		return err
	}
	return nil
}

// Get returns the transaction with the given ID.
func (s *ManualStore) Get(id string) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, &domain.ErrNotFound{Resource: "manual transaction", ID: id}
	}
	return s.txns[idx], nil
}

func (s *ManualStore) indexOf(id string) int {
	for i, tx := range s.txns {
		if tx.ID == id {
			return i
		}
	}
	return -1
}

func (s *ManualStore) save() error {
	data, err := json.MarshalIndent(s.txns, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manual transactions: %w", err)
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

// DuplicatePair is two transactions that look like the same charge.
type DuplicatePair struct {
	First  *domain.Transaction `json:"first"`
	Second *domain.Transaction `json:"second"`
}

// DetectDuplicates pairs transactions whose descriptions contain each
// other, whose amounts differ by at most one cent, and whose dates are
// at most a day apart.
func DetectDuplicates(txns []*domain.Transaction) []DuplicatePair {
	var pairs []DuplicatePair
	for i, a := range txns {
		for _, b := range txns[i+1:] {
			upperA := strings.ToUpper(a.Description)
			upperB := strings.ToUpper(b.Description)
			if !strings.Contains(upperA, upperB) && !strings.Contains(upperB, upperA) {
				continue
			}
			if math.Abs(a.AbsAmount()-b.AbsAmount()) > dupAmountTolerance {
				continue
			}
			days := math.Abs(a.Date.Sub(b.Date).Hours() / 24)
			if days > dupDateToleranceDays {
				continue
			}
			pairs = append(pairs, DuplicatePair{First: a, Second: b})
		}
	}
	return pairs
}

// MergeDuplicates combines a pair into one transaction. The first
// transaction wins on every field; tags are unioned and notes joined.
func MergeDuplicates(a, b *domain.Transaction) *domain.Transaction {
	merged := *a

	merged.Tags = append([]string(nil), a.Tags...)
	for _, tag := range b.Tags {
		if !merged.HasTag(tag) {
			merged.Tags = append(merged.Tags, tag)
		}
	}

	var notes []string
	if a.Notes != "" {
		notes = append(notes, a.Notes)
	}
	if b.Notes != "" {
		notes = append(notes, b.Notes)
	}
	merged.Notes = strings.Join(notes, " | ")

	return &merged
}
