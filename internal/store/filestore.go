// Package store loads transaction data from disk: bank CSV exports in
// a data directory plus a JSON file of manually entered transactions.
package store

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pftrack/pftrack/internal/domain"
	"github.com/pftrack/pftrack/internal/ingest"
)

// FileStore reads every bank CSV export in a directory. Files whose
// name mentions "visa" or "credit" are parsed as credit card exports,
// everything else as checking.
type FileStore struct {
	dir    string
	parser *ingest.Parser
	logger *zap.Logger
}

func NewFileStore(dir string, parser *ingest.Parser, logger *zap.Logger) *FileStore {
	return &FileStore{dir: dir, parser: parser, logger: logger}
}

// LoadAll parses all CSV files concurrently and returns the combined
// transactions sorted by date. A directory without CSV files yields an
// empty slice, not an error.
func (s *FileStore) LoadAll() ([]*domain.Transaction, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.csv"))
	if err != nil {
		return nil, &domain.ErrConfig{Source: s.dir, Reason: "invalid data directory pattern"}
	}
	if len(paths) == 0 {
		s.logger.Warn("no csv files found", zap.String("dir", s.dir))
		return []*domain.Transaction{}, nil
	}

	var (
		mu  sync.Mutex
		all []*domain.Transaction
	)
	var group errgroup.Group
	for _, path := range paths {
		path := path
		group.Go(func() error {
			txns, err := s.loadFile(path)
			if err != nil {
				return err
			}
			mu.Lock()
			all = append(all, txns...)
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	s.logger.Info("transactions loaded", zap.Int("files", len(paths)), zap.Int("transactions", len(all)))
	return all, nil
}

func (s *FileStore) loadFile(path string) ([]*domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &domain.ErrConfig{Source: path, Reason: "cannot open csv file"}
	}
	defer f.Close()

	name := filepath.Base(path)
	if isCreditCardExport(name) {
		return s.parser.ParseCreditCard(f, name)
	}
	return s.parser.ParseChecking(f, name)
}

func isCreditCardExport(filename string) bool {
	lower := strings.ToLower(filename)
	return strings.Contains(lower, "visa") || strings.Contains(lower, "credit")
}
