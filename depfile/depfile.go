// Package depfile reads and writes file dependency maps.
//
// A dependency map records the last write time of every file a compile
// read: the root source and each include resolved from disk. One entry is
// stored per line as
//
//	<path> <ticks>
//
// where ticks counts 100ns intervals since 0001-01-01 UTC. Paths may
// contain spaces; the ticks are the text after the last one. A Record can
// also carry the cache key of the compile that produced the map, written as
// a leading "#key <hex>" line.
package depfile

import (
	"bufio"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/blake2b"

	"github.com/gogpu/fxc/hlsl"
	"github.com/gogpu/fxc/preprocess"
)

// ErrMalformed is wrapped by errors for lines that are not "<path> <ticks>".
var ErrMalformed = errors.New("depfile: malformed entry")

const (
	keyPrefix = "#key "

	// unixEpochTicks is 1970-01-01 in ticks since 0001-01-01.
	unixEpochTicks = 621355968000000000
	ticksPerSecond = 10000000
)

// Ticks converts t to 100ns intervals since 0001-01-01 UTC.
func Ticks(t time.Time) int64 {
	return unixEpochTicks + t.Unix()*ticksPerSecond + int64(t.Nanosecond())/100
}

// FromTicks converts ticks back to a UTC time.
func FromTicks(ticks int64) time.Time {
	rel := ticks - unixEpochTicks
	sec, rem := rel/ticksPerSecond, rel%ticksPerSecond
	if rem < 0 {
		sec--
		rem += ticksPerSecond
	}
	return time.Unix(sec, rem*100).UTC()
}

// Map holds the last write time of each dependency.
type Map map[string]time.Time

// FromFiles stats every path and records its modification time.
func FromFiles(paths []string) (Map, error) {
	m := make(Map, len(paths))
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("depfile: %w", err)
		}
		m[p] = fi.ModTime()
	}
	return m, nil
}

// Paths returns the recorded paths in sorted order.
func (m Map) Paths() []string {
	paths := make([]string, 0, len(m))
	for p := range m {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Stale returns the first path, in sorted order, that is missing or whose
// modification time differs from the recorded one at tick precision.
func (m Map) Stale() (string, bool) {
	for _, p := range m.Paths() {
		fi, err := os.Stat(p)
		if err != nil || Ticks(fi.ModTime()) != Ticks(m[p]) {
			return p, true
		}
	}
	return "", false
}

// Record is a dependency map plus the cache key of the compile it
// describes. Key may be empty.
type Record struct {
	Key   string
	Files Map
}

// Stale reports whether the record no longer describes a compile with the
// given key. An empty key skips the key comparison.
func (r *Record) Stale(key string) (string, bool) {
	if key != "" && r.Key != key {
		return "cache key", true
	}
	return r.Files.Stale()
}

// Read parses a dependency file. Blank lines and "#" comments other than
// the key line are ignored.
func Read(rd io.Reader) (*Record, error) {
	rec := &Record{Files: make(Map)}
	sc := bufio.NewScanner(rd)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if key, ok := strings.CutPrefix(text, keyPrefix); ok && line == 1 {
			rec.Key = strings.TrimSpace(key)
			continue
		}
		if strings.TrimSpace(text) == "" || strings.HasPrefix(text, "#") {
			continue
		}

		i := strings.LastIndexByte(text, ' ')
		if i <= 0 {
			return nil, fmt.Errorf("%w: line %d: %q", ErrMalformed, line, text)
		}
		ticks, err := strconv.ParseInt(text[i+1:], 10, 64)
		if err != nil || ticks < 0 {
			return nil, fmt.Errorf("%w: line %d: invalid ticks %q", ErrMalformed, line, text[i+1:])
		}
		rec.Files[text[:i]] = FromTicks(ticks)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("depfile: %w", err)
	}
	return rec, nil
}

// Write writes the record with entries sorted by path.
func (r *Record) Write(w io.Writer) error {
	bw := bufio.NewWriter(w)
	if r.Key != "" {
		fmt.Fprintf(bw, "%s%s\n", keyPrefix, r.Key)
	}
	for _, p := range r.Files.Paths() {
		fmt.Fprintf(bw, "%s %d\n", p, Ticks(r.Files[p]))
	}
	return bw.Flush()
}

// Load reads the dependency file at path.
func Load(path string) (*Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

// Save writes the record to path.
func (r *Record) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// CacheKey digests everything besides file contents that changes compile
// output: the root source, the predefined macros in order, and the shader
// flags. The result is a hex BLAKE2b-256 sum.
func CacheKey(source string, macros []preprocess.Macro, flags hlsl.ShaderFlags) string {
	h, _ := blake2b.New256(nil)
	writeField(h, source)
	for _, m := range macros {
		writeField(h, m.Name)
		writeField(h, m.Value)
	}
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(flags))
	h.Write(buf[:])
	return hex.EncodeToString(h.Sum(nil))
}

// writeField writes a length-prefixed string so that field boundaries
// change the digest.
func writeField(w io.Writer, s string) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(s)))
	w.Write(buf[:])
	io.WriteString(w, s)
}
