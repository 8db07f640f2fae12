package store

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/bowerhall/roster/internal/logger"
	"github.com/bowerhall/roster/internal/person"
)

const DefaultPath = "dados.txt"

// FileStore persists a whole dataset to one file. Save replaces the file via
// a temp file and rename, which is atomic on POSIX filesystems and
// best-effort elsewhere. Save and Load are serialised within the process.
type FileStore struct {
	mu          sync.Mutex
	path        string
	codec       Codec
	compression Compression
}

// Info describes the data file on disk.
type Info struct {
	Path    string
	Exists  bool
	Size    int64
	ModTime time.Time
}

// wireRecord uses pointers so that missing fields are detected on load.
type wireRecord struct {
	Code     *int    `json:"code" yaml:"code"`
	ID       *string `json:"id" yaml:"id"`
	Name     *string `json:"name" yaml:"name"`
	Email    *string `json:"email" yaml:"email"`
	Phone    *string `json:"phone" yaml:"phone"`
	Cell     *string `json:"cell" yaml:"cell"`
	Location *string `json:"location" yaml:"location"`
	Age      *int    `json:"age" yaml:"age"`
	Picture  *string `json:"picture" yaml:"picture"`
}

func NewFileStore(path string, codec Codec, compression Compression) *FileStore {
	if path == "" {
		path = DefaultPath
	}
	if codec == nil {
		codec = JSON{}
	}
	if compression == "" {
		compression = CompressionNone
	}

	return &FileStore{
		path:        path,
		codec:       codec,
		compression: compression,
	}
}

func (s *FileStore) Path() string {
	return s.path
}

// Save overwrites the data file with ds. On error the previous file, if
// any, is left in place.
func (s *FileStore) Save(ds person.Dataset) error {
	if ds == nil {
		ds = person.Dataset{}
	}

	data, err := s.codec.Marshal(ds)
	if err != nil {
		return fmt.Errorf("encode dataset: %w", err)
	}

	data, err = compress(s.compression, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := writeFile(s.path, data); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}

	logger.Info("dataset saved", "path", s.path, "records", len(ds), "bytes", len(data),
		"codec", s.codec.Name(), "compression", s.compression)
	return nil
}

// Load reads the whole data file. It fails with person.ErrNotFound when the
// file does not exist and person.ErrCorruptData when it cannot be decoded
// into records.
func (s *FileStore) Load() (person.Dataset, error) {
	s.mu.Lock()
	raw, err := os.ReadFile(s.path)
	s.mu.Unlock()

	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", person.ErrNotFound, s.path)
		}
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	data, err := decompress(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: decompress: %w", person.ErrCorruptData, err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", person.ErrCorruptData, s.path)
	}

	var wire []wireRecord
	if err := s.codec.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", person.ErrCorruptData, s.path, err)
	}

	ds := make(person.Dataset, 0, len(wire))
	for i, w := range wire {
		rec, err := w.record()
		if err != nil {
			return nil, fmt.Errorf("%w: entry %d: %w", person.ErrCorruptData, i, err)
		}
		ds = append(ds, rec)
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}

	if !ds.Contiguous() {
		logger.Warn("dataset codes are not contiguous", "path", s.path, "records", len(ds))
	}

	logger.Info("dataset loaded", "path", s.path, "records", len(ds))
	return ds, nil
}

// Stat reports on the data file without reading it.
func (s *FileStore) Stat() (Info, error) {
	info := Info{Path: s.path}

	fi, err := os.Stat(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return info, nil
	}
	if err != nil {
		return info, err
	}

	info.Exists = true
	info.Size = fi.Size()
	info.ModTime = fi.ModTime()
	return info, nil
}

func (w wireRecord) record() (person.Record, error) {
	missing := func(field string) error {
		return fmt.Errorf("missing field %q", field)
	}

	switch {
	case w.Code == nil:
		return person.Record{}, missing("code")
	case w.ID == nil:
		return person.Record{}, missing("id")
	case w.Name == nil:
		return person.Record{}, missing("name")
	case w.Email == nil:
		return person.Record{}, missing("email")
	case w.Phone == nil:
		return person.Record{}, missing("phone")
	case w.Cell == nil:
		return person.Record{}, missing("cell")
	case w.Location == nil:
		return person.Record{}, missing("location")
	case w.Age == nil:
		return person.Record{}, missing("age")
	case w.Picture == nil:
		return person.Record{}, missing("picture")
	}

	return person.Record{
		Code:     *w.Code,
		ID:       *w.ID,
		Name:     *w.Name,
		Email:    *w.Email,
		Phone:    *w.Phone,
		Cell:     *w.Cell,
		Location: *w.Location,
		Age:      *w.Age,
		Picture:  *w.Picture,
	}, nil
}

func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		if tmpName != "" {
			_ = os.Remove(tmpName)
		}
	}()

	_ = tmp.Chmod(0644)

	buf := bufio.NewWriter(tmp)
	if _, err := buf.Write(data); err != nil {
		return err
	}
	if err := buf.Flush(); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}
	tmpName = ""

	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	return nil
}
