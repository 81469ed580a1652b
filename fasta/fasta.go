package fasta

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"
)

// Record is one parsed FASTA sequence.
type Record struct {
	ID  string
	Seq []byte
}

// maxLine allows single-line sequences up to 64 MiB, which covers
// unwrapped chromosome-scale FASTA lines.
const maxLine = 64 * 1024 * 1024

type multiReadCloser struct {
	io.Reader
	closers []io.Closer
}

func (m *multiReadCloser) Close() error {
	var err error
	for _, c := range m.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// Open opens a FASTA file, transparently decompressing gzip. Gzip is
// detected by the 1F 8B magic bytes or a .gz suffix.
func Open(path string) (io.ReadCloser, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	var sig [2]byte
	n, _ := fh.Read(sig[:])
	if _, err := fh.Seek(0, io.SeekStart); err != nil {
		_ = fh.Close()
		return nil, err
	}
	if (n == 2 && sig[0] == 0x1f && sig[1] == 0x8b) ||
		strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".gzip") {
		gr, err := gzip.NewReader(fh)
		if err != nil {
			_ = fh.Close()
			return nil, err
		}
		return &multiReadCloser{Reader: gr, closers: []io.Closer{gr, fh}}, nil
	}
	return fh, nil
}

// Walk streams records from r, invoking fn once per record with the
// concatenated sequence. Header IDs are the first whitespace-delimited
// word after '>'.
func Walk(r io.Reader, fn func(Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), maxLine)

	var (
		id  string
		seq = make([]byte, 0, 1<<20)
		seen bool
	)

	flush := func() error {
		if !seen {
			return nil
		}
		rec := Record{ID: id, Seq: append([]byte(nil), seq...)}
		seq = seq[:0]
		return fn(rec)
	}

	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if err := flush(); err != nil {
				return err
			}
			id = headerID(line[1:])
			seen = true
			continue
		}
		if !seen {
			return fmt.Errorf("fasta: sequence data before first header")
		}
		seq = append(seq, line...)
	}
	if err := sc.Err(); err != nil {
		return err
	}
	return flush()
}

// WalkFile is Walk over a path, with gzip handled by Open.
func WalkFile(path string, fn func(Record) error) error {
	rc, err := Open(path)
	if err != nil {
		return err
	}
	defer rc.Close()
	return Walk(rc, fn)
}

// ReadAll materializes every record in path.
func ReadAll(path string) ([]Record, error) {
	var records []Record
	err := WalkFile(path, func(rec Record) error {
		records = append(records, rec)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

func headerID(b []byte) string {
	header := strings.TrimSpace(string(b))
	if idx := strings.IndexAny(header, " \t"); idx >= 0 {
		return header[:idx]
	}
	return header
}
