package telemetry

import (
	"bufio"
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"codeberg.org/mutker/thermalctl/internal/errors"
	"codeberg.org/mutker/thermalctl/internal/logger"
)

type Repository interface {
	Append(ctx context.Context, record *Record) error
	Close() error
}

// fileRepository opens, writes and closes the data log on every append. No
// lock is taken; concurrent writers are the scheduler's problem.
type fileRepository struct {
	path string
}

func NewRepository(cfg Config) (Repository, error) {
	if !cfg.Enabled() {
		return nil, errors.New().New(ErrInvalidDataLogPath)
	}

	logger.Debug().Msgf("Initializing data log at: %s", cfg.DataLogFile)

	return &fileRepository{path: cfg.DataLogFile}, nil
}

func (r *fileRepository) Append(ctx context.Context, record *Record) error {
	errFactory := errors.New()

	if err := ctx.Err(); err != nil {
		return errFactory.Wrap(ErrOperationTimeout, err)
	}

	if err := os.MkdirAll(filepath.Dir(r.path), defaultDirPerm); err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, defaultFilePerm)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	if _, err := f.WriteString(record.Format() + "\n"); err != nil {
		f.Close()
		return errFactory.Wrap(ErrStorageAccess, err)
	}

	if err := f.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	return nil
}

func (*fileRepository) Close() error {
	return nil
}

// ReadRecords scans the data log and returns the records at or after since,
// sorted by timestamp. A zero since returns everything. Unparseable lines
// are counted and skipped.
func ReadRecords(path string, since time.Time) (ScanResult, error) {
	errFactory := errors.New()

	f, err := os.Open(path)
	if err != nil {
		return ScanResult{}, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer f.Close()

	var result ScanResult
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		rec, err := ParseRecord(line)
		if err != nil {
			result.Skipped++
			continue
		}
		if !since.IsZero() && rec.Timestamp.Before(since) {
			continue
		}
		result.Records = append(result.Records, rec)
	}
	if err := scanner.Err(); err != nil {
		return result, errFactory.Wrap(ErrStorageAccess, err)
	}

	sort.SliceStable(result.Records, func(i, j int) bool {
		return result.Records[i].Timestamp.Before(result.Records[j].Timestamp)
	})

	if result.Skipped > 0 {
		logger.Debug().Int("skipped", result.Skipped).Str("path", path).Msg("Skipped unparseable data log lines")
	}

	return result, nil
}
