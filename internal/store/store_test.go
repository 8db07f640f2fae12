package store

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bowerhall/roster/internal/person"
)

func sampleDataset(n int) person.Dataset {
	ds := make(person.Dataset, 0, n)
	for i := 1; i <= n; i++ {
		id := person.NoID
		if i%2 == 0 {
			id = "ID-" + string(rune('A'+i%26))
		}
		ds = append(ds, person.Record{
			Code:     i,
			ID:       id,
			Name:     "Person Number",
			Email:    "p@example.com",
			Phone:    "(555) 010-0000",
			Cell:     "",
			Location: "Austin, Texas - United States",
			Age:      20 + i,
			Picture:  "https://example.com/p.jpg",
		})
	}
	return ds
}

func TestRoundTrip(t *testing.T) {
	codecs := []Codec{JSON{}, YAML{}}
	compressions := []Compression{CompressionNone, CompressionZstd, CompressionLZ4}

	for _, codec := range codecs {
		for _, comp := range compressions {
			for _, n := range []int{0, 1, 25} {
				name := fmt.Sprintf("%s/%s/%d", codec.Name(), comp, n)
				t.Run(name, func(t *testing.T) {
					path := filepath.Join(t.TempDir(), "dados.txt")
					s := NewFileStore(path, codec, comp)

					want := sampleDataset(n)
					require.NoError(t, s.Save(want))

					got, err := s.Load()
					require.NoError(t, err)
					assert.Equal(t, want, got)
				})
			}
		}
	}
}

func TestSaveNilDatasetWritesEmptySequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dados.txt")
	s := NewFileStore(path, JSON{}, CompressionNone)

	require.NoError(t, s.Save(nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSaveOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dados.txt")
	s := NewFileStore(path, JSON{}, CompressionNone)

	require.NoError(t, s.Save(sampleDataset(10)))
	require.NoError(t, s.Save(sampleDataset(2)))

	got, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, got, 2)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}

func TestJSONFieldOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dados.txt")
	s := NewFileStore(path, JSON{}, CompressionNone)
	require.NoError(t, s.Save(sampleDataset(1)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	want := `[
  {
    "code": 1,
    "id": "Sem ID",
    "name": "Person Number",
    "email": "p@example.com",
    "phone": "(555) 010-0000",
    "cell": "",
    "location": "Austin, Texas - United States",
    "age": 21,
    "picture": "https://example.com/p.jpg"
  }
]
`
	assert.Equal(t, want, string(data))
}

func TestLoadMissingFile(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "absent.txt"), JSON{}, CompressionNone)

	ds, err := s.Load()
	require.ErrorIs(t, err, person.ErrNotFound)
	assert.Nil(t, ds)
}

func TestLoadCorruptContent(t *testing.T) {
	tests := []struct {
		name    string
		codec   Codec
		content string
	}{
		{"not json", JSON{}, "this is not json"},
		{"object instead of list", JSON{}, `{"code": 1}`},
		{"age type mismatch", JSON{}, `[{"code":1,"id":"x","name":"n","email":"e","phone":"p","cell":"c","location":"l","age":"old","picture":"f"}]`},
		{"missing age", JSON{}, `[{"code":1,"id":"x","name":"n","email":"e","phone":"p","cell":"c","location":"l","picture":"f"}]`},
		{"missing code", JSON{}, `[{"id":"x","name":"n","email":"e","phone":"p","cell":"c","location":"l","age":3,"picture":"f"}]`},
		{"null entry", JSON{}, `[null]`},
		{"duplicate codes", JSON{}, `[
			{"code":1,"id":"x","name":"n","email":"e","phone":"p","cell":"c","location":"l","age":3,"picture":"f"},
			{"code":1,"id":"y","name":"n","email":"e","phone":"p","cell":"c","location":"l","age":4,"picture":"f"}]`},
		{"yaml age mismatch", YAML{}, "- code: 1\n  id: x\n  name: n\n  email: e\n  phone: p\n  cell: c\n  location: l\n  age: old\n  picture: f\n"},
		{"truncated zstd", JSON{}, string(zstdMagic) + "garbage"},
		{"empty json", JSON{}, ""},
		{"blank json", JSON{}, " \n\t\n"},
		{"empty yaml", YAML{}, ""},
		{"blank yaml", YAML{}, "\n  \n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "dados.txt")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			s := NewFileStore(path, tt.codec, CompressionNone)
			ds, err := s.Load()
			require.ErrorIs(t, err, person.ErrCorruptData)
			assert.Nil(t, ds)
		})
	}
}

func TestLoadDetectsCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dados.txt")

	writer := NewFileStore(path, JSON{}, CompressionZstd)
	require.NoError(t, writer.Save(sampleDataset(3)))

	reader := NewFileStore(path, JSON{}, CompressionNone)
	got, err := reader.Load()
	require.NoError(t, err)
	assert.Equal(t, sampleDataset(3), got)
}

func TestStat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dados.txt")
	s := NewFileStore(path, JSON{}, CompressionNone)

	info, err := s.Stat()
	require.NoError(t, err)
	assert.False(t, info.Exists)

	require.NoError(t, s.Save(sampleDataset(2)))

	info, err = s.Stat()
	require.NoError(t, err)
	assert.True(t, info.Exists)
	assert.Positive(t, info.Size)
	assert.Equal(t, path, info.Path)
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]string{"": "json", "json": "json", "yaml": "yaml", "yml": "yaml"} {
		c, err := CodecByName(name)
		require.NoError(t, err)
		assert.Equal(t, want, c.Name())
	}

	_, err := CodecByName("xml")
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for in, want := range map[string]Compression{"": CompressionNone, "none": CompressionNone, "zstd": CompressionZstd, "lz4": CompressionLZ4} {
		got, err := ParseCompression(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseCompression("gzip")
	assert.Error(t, err)
}
