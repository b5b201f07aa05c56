// Package docio reads and writes document files. Files hold the JSON export
// of a document, optionally wrapped in gzip or xz; the container is detected
// from magic bytes on load.
package docio

import (
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/FocuswithJustin/ucp/core/document"
	"github.com/FocuswithJustin/ucp/core/errors"
	"github.com/FocuswithJustin/ucp/internal/logging"
	"github.com/FocuswithJustin/ucp/internal/validation"
)

// Injectable functions for testing
var (
	gzipNewWriterLevel = gzip.NewWriterLevel
	xzNewWriter        = xz.NewWriter
	gzipNewReader      = gzip.NewReader
	xzNewReader        = xz.NewReader
	osReadFile         = os.ReadFile
	osStat             = os.Stat
	osCreateTemp       = os.CreateTemp
	osRename           = os.Rename
)

// Compression is the container around a document's JSON.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionGzip Compression = "gzip"
	CompressionXZ   Compression = "xz"
)

// ParseCompression accepts "none", "gzip" or "xz". The empty string means
// none.
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(strings.TrimSpace(s))) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionGzip, "gz":
		return CompressionGzip, nil
	case CompressionXZ:
		return CompressionXZ, nil
	default:
		return "", errors.NewUnsupported("compression", s)
	}
}

// CompressionForPath picks the container implied by a file extension,
// falling back to none.
func CompressionForPath(path string) Compression {
	switch validation.FileTypeFromExtension(path) {
	case validation.FileTypeGzip:
		return CompressionGzip
	case validation.FileTypeXZ:
		return CompressionXZ
	default:
		return CompressionNone
	}
}

// Options controls how documents are written.
type Options struct {
	// Indent pretty-prints the JSON with two-space indentation.
	Indent bool
	// Compression selects the container. Empty means infer from the file
	// extension in Save and none in Encode.
	Compression Compression
}

// Encode serializes d according to opts.
func Encode(d *document.Document, opts Options) ([]byte, error) {
	data, err := d.ToJSON()
	if err != nil {
		return nil, err
	}
	if opts.Indent {
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, "", "  "); err != nil {
			return nil, fmt.Errorf("failed to indent document: %w", err)
		}
		buf.WriteByte('\n')
		data = buf.Bytes()
	}

	var out bytes.Buffer
	var w io.WriteCloser
	switch opts.Compression {
	case "", CompressionNone:
		return data, nil
	case CompressionGzip:
		w, err = gzipNewWriterLevel(&out, gzip.BestCompression)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip writer: %w", err)
		}
	case CompressionXZ:
		w, err = xzNewWriter(&out)
		if err != nil {
			return nil, fmt.Errorf("failed to create xz writer: %w", err)
		}
	default:
		return nil, errors.NewUnsupported("compression", string(opts.Compression))
	}

	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to compress document: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress document: %w", err)
	}
	return out.Bytes(), nil
}

// Decode restores a document from plain, gzip or xz data. Decompressed
// output is capped at validation.MaxFileSize.
func Decode(data []byte) (*document.Document, Compression, error) {
	var r io.Reader
	compression := CompressionNone

	switch validation.DetectFileType(data) {
	case validation.FileTypeJSON:
		r = bytes.NewReader(data)
	case validation.FileTypeGzip:
		gz, err := gzipNewReader(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gz.Close()
		r, compression = gz, CompressionGzip
	case validation.FileTypeXZ:
		xr, err := xzNewReader(bytes.NewReader(data))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create xz reader: %w", err)
		}
		r, compression = xr, CompressionXZ
	default:
		return nil, "", errors.NewUnsupported("document format", "expected JSON, gzip or xz data")
	}

	plain, err := io.ReadAll(io.LimitReader(r, validation.MaxFileSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("failed to decompress document: %w", err)
	}
	if err := validation.ValidateFileSize(int64(len(plain))); err != nil {
		return nil, "", err
	}

	d, err := document.FromJSON(plain)
	if err != nil {
		return nil, "", err
	}
	return d, compression, nil
}

// Load reads a document file.
func Load(path string) (*document.Document, Compression, error) {
	if err := validation.ValidatePath(path); err != nil {
		return nil, "", errors.NewValidation("path", err.Error())
	}

	info, err := osStat(path)
	if err != nil {
		return nil, "", errors.NewIO("stat", path, err)
	}
	if err := validation.ValidateFileSize(info.Size()); err != nil {
		return nil, "", errors.NewValidation("file", err.Error())
	}

	data, err := osReadFile(path)
	if err != nil {
		return nil, "", errors.NewIO("read", path, err)
	}

	d, compression, err := Decode(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) && pe.Path == "" {
			pe.Path = path
		}
		return nil, "", err
	}

	logging.DocumentLoaded(path, d.BlockCount(), string(compression))
	return d, compression, nil
}

// Save writes d to path atomically: the data goes to a temporary file in
// the same directory which is then renamed over path.
func Save(path string, d *document.Document, opts Options) error {
	if err := validation.ValidatePath(path); err != nil {
		return errors.NewValidation("path", err.Error())
	}
	if opts.Compression == "" {
		opts.Compression = CompressionForPath(path)
	}

	data, err := Encode(d, opts)
	if err != nil {
		return err
	}

	tmp, err := osCreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.NewIO("create", path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return errors.NewIO("chmod", tmpName, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.NewIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errors.NewIO("close", tmpName, err)
	}
	if err := osRename(tmpName, path); err != nil {
		return errors.NewIO("rename", path, err)
	}

	logging.DocumentSaved(path, len(data), string(opts.Compression))
	return nil
}

// Write encodes d to w, used for stdout output.
func Write(w io.Writer, d *document.Document, opts Options) error {
	data, err := Encode(d, opts)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return errors.NewIO("write", "", err)
	}
	return nil
}
