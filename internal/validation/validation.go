// Package validation checks user-supplied paths, document files and tool
// arguments before they reach the document engine.
package validation

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits applied to untrusted input (CWE-400).
const (
	// MaxFileSize is the maximum document file size, compressed or not (256 MB).
	MaxFileSize = 256 << 20
	// MaxPathLength is the maximum allowed path length.
	MaxPathLength = 4096
	// MaxRoleLength is the maximum length of a block role.
	MaxRoleLength = 256
	// MaxCommandLength is the maximum length of a single UCL command.
	MaxCommandLength = 1 << 20
)

// Common validation errors.
var (
	ErrPathTooLong      = errors.New("path too long")
	ErrInvalidCharacter = errors.New("invalid character")
	ErrEmptyPath        = errors.New("path cannot be empty")
	ErrFileTooLarge     = errors.New("file too large")
	ErrInvalidRole      = errors.New("invalid role")
	ErrCommandTooLong   = errors.New("command too long")
)

// ValidatePath performs path validation without requiring a base directory.
// It checks length limits and rejects null bytes and control characters.
func ValidatePath(path string) error {
	if path == "" {
		return ErrEmptyPath
	}

	if len(path) > MaxPathLength {
		return ErrPathTooLong
	}

	if strings.Contains(path, "\x00") {
		return fmt.Errorf("%w: null byte not allowed", ErrInvalidCharacter)
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: control character not allowed", ErrInvalidCharacter)
		}
	}

	return nil
}

// ValidateFileSize rejects sizes above MaxFileSize.
func ValidateFileSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrFileTooLarge, size, MaxFileSize)
	}
	return nil
}

// ValidateRole checks a block role supplied by a client. The empty role is
// valid.
func ValidateRole(role string) error {
	if len(role) > MaxRoleLength {
		return fmt.Errorf("%w: longer than %d bytes", ErrInvalidRole, MaxRoleLength)
	}
	if !utf8.ValidString(role) {
		return fmt.Errorf("%w: not valid UTF-8", ErrInvalidRole)
	}
	for _, r := range role {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: whitespace and control characters not allowed", ErrInvalidRole)
		}
	}
	return nil
}

// ValidateCommand applies size limits to UCL text received from clients.
func ValidateCommand(text string) error {
	if len(text) > MaxCommandLength {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrCommandTooLong, len(text), MaxCommandLength)
	}
	return nil
}

// FileType is the container format of a document file.
type FileType string

const (
	FileTypeJSON    FileType = "json"
	FileTypeGzip    FileType = "gzip"
	FileTypeXZ      FileType = "xz"
	FileTypeUnknown FileType = "unknown"
)

// magicBytes defines magic byte signatures for file type detection.
var magicBytes = []struct {
	fileType FileType
	magic    []byte
}{
	{FileTypeGzip, []byte{0x1f, 0x8b}},
	{FileTypeXZ, []byte{0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00}},
}

// HeaderSize is the number of leading bytes DetectFileType inspects.
const HeaderSize = 512

// DetectFileType classifies a document file from its first bytes. Plain
// JSON is recognised by its first non-space byte being '{'.
func DetectFileType(header []byte) FileType {
	for _, sig := range magicBytes {
		if bytes.HasPrefix(header, sig.magic) {
			return sig.fileType
		}
	}
	trimmed := bytes.TrimLeft(header, " \t\r\n\xef\xbb\xbf")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FileTypeJSON
	}
	return FileTypeUnknown
}

// ReadFileType reads up to HeaderSize bytes from r and classifies them.
// The bytes read are returned so the caller can replay them.
func ReadFileType(r io.Reader) (FileType, []byte, error) {
	buf := make([]byte, HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return FileTypeUnknown, nil, fmt.Errorf("failed to read file header: %w", err)
	}
	buf = buf[:n]
	return DetectFileType(buf), buf, nil
}

// FileTypeFromExtension infers the container from a file name, used when
// writing a new file.
func FileTypeFromExtension(filename string) FileType {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".gz"), strings.HasSuffix(lower, ".gzip"):
		return FileTypeGzip
	case strings.HasSuffix(lower, ".xz"):
		return FileTypeXZ
	case strings.HasSuffix(lower, ".json"):
		return FileTypeJSON
	default:
		return FileTypeUnknown
	}
}
