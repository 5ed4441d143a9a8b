package ledger

import (
	"errors"

	"github.com/spherical/cheque-extractor/internal/domain"
)

type tee []domain.LedgerWriter

// Tee fans every call out to all writers in order. The first writer is the
// primary ledger: an error from it stops the call before later writers run.
func Tee(writers ...domain.LedgerWriter) domain.LedgerWriter {
	if len(writers) == 1 {
		return writers[0]
	}
	return tee(writers)
}

func (t tee) WriteHeader() error {
	for _, w := range t {
		if err := w.WriteHeader(); err != nil {
			return err
		}
	}
	return nil
}

func (t tee) Append(rec domain.ChequeRecord) error {
	for _, w := range t {
		if err := w.Append(rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every writer and joins their errors.
func (t tee) Close() error {
	var errs []error
	for _, w := range t {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
