package store

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/YuminosukeSato/carprice/core/model"
	"github.com/YuminosukeSato/carprice/pkg/errors"
	"github.com/YuminosukeSato/carprice/pkg/log"
)

const compressedSuffix = ".zst"

var zstdDecoderPool = sync.Pool{
	New: func() any {
		decoder, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd decoder: %v", err))
		}
		return decoder
	},
}

var zstdEncoderPool = sync.Pool{
	New: func() any {
		encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			panic(fmt.Sprintf("failed to create zstd encoder: %v", err))
		}
		return encoder
	},
}

// traceFile is the on-disk trace layout. Checksum is omitted by older writers.
type traceFile struct {
	Theta0   []json.RawMessage `json:"theta0"`
	Theta1   []json.RawMessage `json:"theta1"`
	Loss     []json.RawMessage `json:"loss"`
	Checksum string            `json:"checksum,omitempty"`
}

// SaveTrace writes {"theta0": [...], "theta1": [...], "loss": [...]} together
// with an xxhash64 checksum of the values.
func (s *FileStore) SaveTrace(t *model.Trace) error {
	if t == nil {
		return errors.NewValueError("FileStore.SaveTrace", "nil trace")
	}
	if err := t.Validate(); err != nil {
		return err
	}

	data, err := json.Marshal(struct {
		*model.Trace
		Checksum string `json:"checksum"`
	}{t, formatChecksum(Checksum(t))})
	if err != nil {
		return errors.Wrap(err, "encode trace")
	}
	if isCompressed(s.tracePath) {
		encoder := zstdEncoderPool.Get().(*zstd.Encoder)
		data = encoder.EncodeAll(data, nil)
		zstdEncoderPool.Put(encoder)
	}
	if err := writeAtomic(s.tracePath, data); err != nil {
		return err
	}

	s.log().Info("Trace saved",
		log.OperationKey, log.OperationSave,
		log.SourceKey, s.tracePath,
		log.IterationKey, t.Len(),
	)
	return nil
}

// LoadTrace reads the trace artifact. A missing or malformed file, a missing
// sequence, unequal lengths, an empty trace, a non-numeric or non-finite entry
// and a checksum mismatch all yield an InvalidStateError.
func (s *FileStore) LoadTrace() (*model.Trace, error) {
	data, err := os.ReadFile(s.tracePath)
	if err != nil {
		return nil, s.readError(artifactTrace, s.tracePath, err)
	}
	if isCompressed(s.tracePath) {
		decoder := zstdDecoderPool.Get().(*zstd.Decoder)
		data, err = decoder.DecodeAll(data, nil)
		zstdDecoderPool.Put(decoder)
		if err != nil {
			return nil, errors.NewInvalidStateError(artifactTrace, s.tracePath, "zstd decompression failed", err)
		}
	}

	invalid := func(reason string, cause error) error {
		return errors.NewInvalidStateError(artifactTrace, s.tracePath, reason, cause)
	}

	var tf traceFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, invalid("malformed JSON", err)
	}
	if tf.Theta0 == nil || tf.Theta1 == nil || tf.Loss == nil {
		return nil, invalid("missing theta0, theta1 or loss", nil)
	}
	if len(tf.Theta0) != len(tf.Theta1) || len(tf.Theta0) != len(tf.Loss) {
		return nil, invalid(fmt.Sprintf("inconsistent lengths: theta0=%d theta1=%d loss=%d",
			len(tf.Theta0), len(tf.Theta1), len(tf.Loss)), nil)
	}
	if len(tf.Loss) == 0 {
		return nil, invalid("empty trace", errors.ErrEmptyData)
	}

	t := model.NewTrace(len(tf.Loss))
	for i := range tf.Loss {
		var vals [3]float64
		for j, raw := range [3]json.RawMessage{tf.Theta0[i], tf.Theta1[i], tf.Loss[i]} {
			v, err := parseNumber(raw)
			if err != nil {
				return nil, invalid(fmt.Sprintf("entry %d", i), err)
			}
			vals[j] = v
		}
		t.Append(vals[0], vals[1], vals[2])
	}
	if err := t.Validate(); err != nil {
		return nil, invalid("invalid values", err)
	}

	if tf.Checksum != "" {
		want, err := strconv.ParseUint(strings.TrimSpace(tf.Checksum), 16, 64)
		if err != nil {
			return nil, invalid("malformed checksum", err)
		}
		if got := Checksum(t); got != want {
			return nil, invalid(fmt.Sprintf("checksum mismatch: stored %016x, computed %016x", want, got), nil)
		}
	}

	s.log().Debug("Trace loaded",
		log.OperationKey, log.OperationLoad,
		log.SourceKey, s.tracePath,
		log.IterationKey, t.Len(),
	)
	return t, nil
}

// Checksum returns the xxhash64 of the trace values in iteration order
// (theta0, theta1, loss per iteration, little-endian IEEE 754 bits).
func Checksum(t *model.Trace) uint64 {
	h := xxhash.New()
	var buf [24]byte
	for i := 0; i < t.Len(); i++ {
		binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(t.Theta0[i]))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(t.Theta1[i]))
		binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(t.Loss[i]))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}

func formatChecksum(sum uint64) string {
	return fmt.Sprintf("%016x", sum)
}

func isCompressed(path string) bool {
	return strings.HasSuffix(path, compressedSuffix)
}
