// Package store persists trained coefficients and the training trace as
// JSON artifacts shared by the train, estimate and evaluate tools.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

// Default artifact locations.
const (
	DefaultThetaPath = "thetas.json"
	DefaultTracePath = "theta_history.json"
)

const (
	artifactCoefficients = "coefficients"
	artifactTrace        = "trace"
)

// FileStore reads and writes the coefficient and trace artifacts. Every write
// replaces the previous file atomically.
type FileStore struct {
	thetaPath string
	tracePath string
	logger    log.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(s *FileStore) {
		s.logger = logger
	}
}

// New returns a store for the given artifact paths. A trace path ending in
// ".zst" is written zstd-compressed.
func New(thetaPath, tracePath string, opts ...Option) *FileStore {
	s := &FileStore{thetaPath: thetaPath, tracePath: tracePath}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ThetaPath returns the coefficient artifact path.
func (s *FileStore) ThetaPath() string { return s.thetaPath }

// TracePath returns the trace artifact path.
func (s *FileStore) TracePath() string { return s.tracePath }

// Save writes the coefficients as {"theta0": ..., "theta1": ...}.
func (s *FileStore) Save(c model.Coefficients) error {
	if err := c.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "encode coefficients")
	}
	if err := writeAtomic(s.thetaPath, data); err != nil {
		return err
	}
	s.log().Info("Coefficients saved",
		log.OperationKey, log.OperationSave,
		log.SourceKey, s.thetaPath,
		log.Theta0Key, c.Theta0,
		log.Theta1Key, c.Theta1,
	)
	return nil
}

// Load reads the coefficients. A missing file, malformed JSON, a missing or
// non-numeric field and non-finite values all yield an InvalidStateError;
// a missing file additionally matches ErrArtifactNotFound.
func (s *FileStore) Load() (model.Coefficients, error) {
	data, err := os.ReadFile(s.thetaPath)
	if err != nil {
		return model.Coefficients{}, s.readError(artifactCoefficients, s.thetaPath, err)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return model.Coefficients{}, errors.NewInvalidStateError(artifactCoefficients, s.thetaPath, "malformed JSON", err)
	}

	var c model.Coefficients
	for _, f := range []struct {
		name string
		dst  *float64
	}{{"theta0", &c.Theta0}, {"theta1", &c.Theta1}} {
		raw, ok := fields[f.name]
		if !ok {
			return model.Coefficients{}, errors.NewInvalidStateError(artifactCoefficients, s.thetaPath,
				fmt.Sprintf("missing field %q", f.name), nil)
		}
		v, err := parseNumber(raw)
		if err != nil {
			return model.Coefficients{}, errors.NewInvalidStateError(artifactCoefficients, s.thetaPath,
				fmt.Sprintf("field %q", f.name), err)
		}
		*f.dst = v
	}
	if err := c.Validate(); err != nil {
		return model.Coefficients{}, errors.NewInvalidStateError(artifactCoefficients, s.thetaPath, "non-finite coefficients", err)
	}

	s.log().Debug("Coefficients loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, s.thetaPath,
		log.Theta0Key, c.Theta0,
		log.Theta1Key, c.Theta1,
	)
	return c, nil
}

// LoadOrInit loads the coefficients, first writing def when the artifact does
// not exist. created reports whether def was written. Any other load failure
// is returned unchanged.
func (s *FileStore) LoadOrInit(def model.Coefficients) (c model.Coefficients, created bool, err error) {
	if _, err := os.Stat(s.thetaPath); os.IsNotExist(err) {
		if err := s.Save(def); err != nil {
			return model.Coefficients{}, false, err
		}
		s.log().Warn("Coefficient artifact not found, default written",
			log.OperationKey, log.OperationLoad,
			log.SourceKey, s.thetaPath,
		)
		created = true
	}
	c, err = s.Load()
	return c, created, err
}

func (s *FileStore) log() log.Logger {
	if s.logger != nil {
		return s.logger
	}
	return log.GetLoggerWithName("store")
}

func (s *FileStore) readError(artifact, path string, err error) error {
	if os.IsNotExist(err) {
		return errors.NewInvalidStateError(artifact, path, "file not found",
			errors.Wrap(errors.ErrArtifactNotFound, err.Error()))
	}
	return errors.NewInvalidStateError(artifact, path, "cannot read file", err)
}

// parseNumber accepts a JSON number or a JSON string holding a number.
func parseNumber(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, errors.New("missing value")
	}
	if raw[0] == '"' {
		var str string
		if err := json.Unmarshal(raw, &str); err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(str), 64)
		if err != nil {
			return 0, errors.Newf("not a number: %q", str)
		}
		return v, nil
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, errors.Newf("not a number: %s", raw)
	}
	return v, nil
}

// writeAtomic writes data to a temporary file in the target directory and
// renames it over path.
func writeAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temporary file for %s", path)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "write %s", path)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", path)
	}
	if err = os.Chmod(tmp.Name(), 0o644); err != nil {
		return errors.Wrapf(err, "chmod %s", path)
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename into %s", path)
	}
	return nil
}
