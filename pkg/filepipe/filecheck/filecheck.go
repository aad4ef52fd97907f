// Package filecheck validates files against configured constraints before
// they enter the processing pipeline.
package filecheck

import (
	"errors"
	"regexp"

	"github.com/origenstudio/filepipe/pkg/filepipe"
)

// Check failure reasons
var (
	// ErrMaxSizeExceeded indicates the file is larger than the allowed maximum
	ErrMaxSizeExceeded = errors.New("exceed-max-allowed-size")

	// ErrInvalidFileType indicates the file's extension or MIME type is not allowed
	ErrInvalidFileType = errors.New("invalid-file-type")
)

// Checker holds the constraints applied to incoming files. Zero-value fields
// disable the corresponding check.
type Checker struct {
	// MaxSize in bytes. Zero disables the size check.
	MaxSize int64

	// TypePattern is matched against the file's extension, falling back to
	// its MIME type when the extension is empty. Nil disables the check.
	TypePattern *regexp.Regexp
}

// New creates a checker with the given constraints
func New(maxSize int64, typePattern *regexp.Regexp) *Checker {
	return &Checker{MaxSize: maxSize, TypePattern: typePattern}
}

// Check validates the file against the configured constraints. It returns
// nil when all checks pass.
func (c *Checker) Check(info filepipe.FileInfo) error {
	if c.MaxSize > 0 && info.Size > c.MaxSize {
		return ErrMaxSizeExceeded
	}
	if c.TypePattern != nil {
		subject := info.Extension
		if subject == "" {
			subject = info.MimeType
		}
		if !c.TypePattern.MatchString(subject) {
			return ErrInvalidFileType
		}
	}
	return nil
}
