package login

import (
	"context"
	"errors"
	"log/slog"
)

// ErrMalformed marks stored text that cannot be read back as a record.
// Storage implementations return it for values they cannot decode
// themselves (for example a cookie with a bad signature).
var ErrMalformed = errors.New("malformed login data")

// Storage is a string key/value slot store shaped like browser local
// storage. GetItem reports ok=false when the key is unset.
type Storage interface {
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Read outcomes passed to a Recorder.
const (
	OutcomePresent = "present"
	OutcomeAbsent  = "absent"
	OutcomePurged  = "purged"
	OutcomeError   = "error"
)

type Recorder interface {
	ObserveRead(outcome string)
	ObserveWrite(err error)
	ObserveClear(err error)
}

type nopRecorder struct{}

func (nopRecorder) ObserveRead(string) {}
func (nopRecorder) ObserveWrite(error) {}
func (nopRecorder) ObserveClear(error) {}

// Store owns the single login slot of a Storage. None of its methods
// return errors: storage and parse failures are absorbed and logged.
type Store struct {
	storage  Storage
	logger   *slog.Logger
	recorder Recorder
}

type Option func(*Store)

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(s *Store) {
		if r != nil {
			s.recorder = r
		}
	}
}

func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage:  storage,
		logger:   slog.Default(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the stored record or nil. A malformed value is removed from
// storage before returning nil.
func (s *Store) Read(ctx context.Context) *Data {
	raw, ok, err := s.storage.GetItem(ctx, Key)
	if err != nil && !errors.Is(err, ErrMalformed) {
		s.logger.WarnContext(ctx, "reading login data", "component", "login", "error", err)
		s.recorder.ObserveRead(OutcomeError)
		return nil
	}

	if err == nil {
		if !ok || raw == "" {
			s.recorder.ObserveRead(OutcomeAbsent)
			return nil
		}

		d, decodeErr := Decode(raw)
		if decodeErr == nil {
			s.recorder.ObserveRead(OutcomePresent)
			return d
		}
		err = decodeErr
	}

	s.logger.InfoContext(ctx, "purging malformed login data", "component", "login", "error", err)
	if rmErr := s.storage.RemoveItem(ctx, Key); rmErr != nil {
		s.logger.WarnContext(ctx, "removing malformed login data", "component", "login", "error", rmErr)
	}
	s.recorder.ObserveRead(OutcomePurged)

	return nil
}

// Write replaces the stored record. The record is not validated.
func (s *Store) Write(ctx context.Context, d *Data) {
	raw, err := Encode(d)
	if err == nil {
		err = s.storage.SetItem(ctx, Key, raw)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "writing login data", "component", "login", "error", err)
	}
	s.recorder.ObserveWrite(err)
}

// Clear removes the stored record. It is a no-op when nothing is stored.
func (s *Store) Clear(ctx context.Context) {
	err := s.storage.RemoveItem(ctx, Key)
	if err != nil {
		s.logger.ErrorContext(ctx, "clearing login data", "component", "login", "error", err)
	}
	s.recorder.ObserveClear(err)
}

func (s *Store) IsActive(ctx context.Context) bool {
	return s.Read(ctx) != nil
}
