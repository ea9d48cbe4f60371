// Package modelstore persists catalog snapshots so a restart can skip
// refitting the similarity index.
//
// A model file is a single gob value holding a metadata header and the
// gzip-compressed gob payload. The header carries a SHA-256 checksum of the
// uncompressed payload which Load verifies before decoding.
package modelstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/okian/rigmatch/internal/domain/catalog"
	"github.com/okian/rigmatch/internal/domain/model"
	"github.com/okian/rigmatch/internal/domain/similarity"
	"github.com/okian/rigmatch/pkg/logger"
	"github.com/okian/rigmatch/pkg/metrics"
)

// formatVersion is bumped whenever the payload layout changes.
const formatVersion = 1

// Metadata describes a stored model.
type Metadata struct {
	Format      int
	Version     string
	Seq         uint64
	BuiltAt     time.Time
	SavedAt     time.Time
	Fingerprint string
	Components  int
	Vocabulary  int
	Checksum    string
	SizeBytes   int64
}

// record is the stored form of one component.
type record struct {
	Category     model.Category
	Availability model.Availability
	Fields       map[string]string
}

type payload struct {
	Records []record
	Texts   []string
	Index   similarity.State
}

type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// FileStore keeps one model at a fixed path.
type FileStore struct {
	path string
	mu   sync.RWMutex
	log  logger.Logger
}

// Option configures a FileStore.
type Option func(*FileStore)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *FileStore) {
		if l != nil {
			s.log = l
		}
	}
}

// NewFileStore returns a store writing to path.
func NewFileStore(path string, opts ...Option) *FileStore {
	s := &FileStore{path: path, log: logger.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the model file path.
func (s *FileStore) Path() string { return s.path }

// Save writes snap, replacing any stored model atomically.
func (s *FileStore) Save(ctx context.Context, snap *catalog.Snapshot) (err error) {
	defer func() { metrics.RecordModelStore("save", outcome(err)) }()
	if snap == nil {
		return similarity.ErrNotTrained
	}
	state, err := snap.Index.State()
	if err != nil {
		return fmt.Errorf("export index: %w", err)
	}

	p := payload{
		Records: make([]record, len(snap.Components)),
		Texts:   snap.Texts,
		Index:   state,
	}
	for i := range snap.Components {
		c := &snap.Components[i]
		p.Records[i] = record{Category: c.Category, Availability: c.Availability, Fields: c.Fields()}
	}

	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(p); err != nil {
		return fmt.Errorf("encode model: %w", err)
	}
	sum := sha256.Sum256(raw.Bytes())

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return fmt.Errorf("compress model: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return fmt.Errorf("finalize compression: %w", err)
	}

	sf := storedFile{
		Metadata: Metadata{
			Format:      formatVersion,
			Version:     snap.Version,
			Seq:         snap.Seq,
			BuiltAt:     snap.BuiltAt,
			SavedAt:     time.Now().UTC(),
			Fingerprint: snap.Fingerprint,
			Components:  snap.Len(),
			Vocabulary:  snap.Index.VocabularySize(),
			Checksum:    hex.EncodeToString(sum[:]),
			SizeBytes:   int64(compressed.Len()),
		},
		CompressedData: compressed.Bytes(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writeFile(sf); err != nil {
		return err
	}
	s.log.Info(ctx, "model saved",
		logger.String("path", s.path),
		logger.String("version", sf.Metadata.Version),
		logger.Int64("size_bytes", sf.Metadata.SizeBytes))
	return nil
}

func (s *FileStore) writeFile(sf storedFile) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create model directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create model file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := gob.NewEncoder(tmp).Encode(sf); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("install model file: %w", err)
	}
	return nil
}

// Metadata reads the header of the stored model.
func (s *FileStore) Metadata(_ context.Context) (Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sf, err := s.readFile()
	if err != nil {
		return Metadata{}, err
	}
	return sf.Metadata, nil
}

// Load restores the stored snapshot.
func (s *FileStore) Load(ctx context.Context) (_ *catalog.Snapshot, err error) {
	defer func() { metrics.RecordModelStore("load", outcome(err)) }()
	s.mu.RLock()
	sf, err := s.readFile()
	s.mu.RUnlock()
	if err != nil {
		return nil, err
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress model: %w", err)
	}
	defer func() { _ = gzr.Close() }()
	raw, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed model: %w", err)
	}
	sum := sha256.Sum256(raw)
	if got := hex.EncodeToString(sum[:]); got != sf.Metadata.Checksum {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, sf.Metadata.Checksum, got)
	}

	var p payload
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode model: %w", err)
	}
	comps := make([]model.Component, len(p.Records))
	for i, r := range p.Records {
		c, err := model.Decode(r.Category, r.Fields)
		if err != nil {
			return nil, fmt.Errorf("decode component %d: %w", i, err)
		}
		c.Availability = r.Availability
		comps[i] = c
	}
	idx, err := similarity.FromState(p.Index)
	if err != nil {
		return nil, fmt.Errorf("restore index: %w", err)
	}
	snap, err := catalog.New(catalog.Meta{
		Version:     sf.Metadata.Version,
		Seq:         sf.Metadata.Seq,
		BuiltAt:     sf.Metadata.BuiltAt,
		Fingerprint: sf.Metadata.Fingerprint,
	}, comps, p.Texts, idx)
	if err != nil {
		return nil, err
	}
	s.log.Info(ctx, "model loaded",
		logger.String("path", s.path),
		logger.String("version", snap.Version),
		logger.Int("components", snap.Len()))
	return snap, nil
}

func (s *FileStore) readFile() (storedFile, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return storedFile{}, ErrNoModel
		}
		return storedFile{}, fmt.Errorf("open model file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var sf storedFile
	if err := gob.NewDecoder(f).Decode(&sf); err != nil {
		return storedFile{}, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	if sf.Metadata.Format != formatVersion {
		return storedFile{}, fmt.Errorf("%w: version %d", ErrFormat, sf.Metadata.Format)
	}
	return sf, nil
}

func outcome(err error) string {
	if err != nil {
		return metrics.OutcomeError
	}
	return metrics.OutcomeOK
}
