package filehandler

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

/*
File explanation:
This file finds and reads candidate images for the CLI.
SupportedImageFormats maps the extensions the standardizer can decode to format names.
SniffFormat recognizes a decodable container from its leading magic bytes.
DetectFileFormat trusts a known extension and falls back to sniffing the content.
ImagesInDirectory walks a directory tree for images, including extension-less ones.
ReadFileBytes reads a file whole, refusing anything larger than MaxFileSize.
*/

// MaxFileSize is the largest input the CLI will read or download
const MaxFileSize = 100 * 1024 * 1024

// ErrTooLarge is returned for inputs above MaxFileSize
var ErrTooLarge = errors.New("file too large (max 100MB)")

// ErrUnsupported is returned for content no decoder recognizes
var ErrUnsupported = errors.New("unsupported image format")

// SupportedImageFormats is a map of file extensions to their format names
var SupportedImageFormats = map[string]string{
	".png":  "png",
	".jpg":  "jpeg",
	".jpeg": "jpeg",
	".gif":  "gif",
	".bmp":  "bmp",
	".webp": "webp",
	".tif":  "tiff",
	".tiff": "tiff",
}

// sniffLen is enough leading bytes for every signature below
const sniffLen = 12

var signatures = []struct {
	format string
	match  func(head []byte) bool
}{
	{"png", prefix("\x89PNG\r\n\x1a\n")},
	{"jpeg", prefix("\xff\xd8\xff")},
	{"gif", func(h []byte) bool { return bytes.HasPrefix(h, []byte("GIF87a")) || bytes.HasPrefix(h, []byte("GIF89a")) }},
	{"bmp", prefix("BM")},
	{"webp", func(h []byte) bool { return len(h) >= 12 && string(h[:4]) == "RIFF" && string(h[8:12]) == "WEBP" }},
	{"tiff", func(h []byte) bool { return bytes.HasPrefix(h, []byte("II*\x00")) || bytes.HasPrefix(h, []byte("MM\x00*")) }},
}

func prefix(magic string) func([]byte) bool {
	return func(h []byte) bool { return bytes.HasPrefix(h, []byte(magic)) }
}

// Extensions returns the supported extensions, sorted
func Extensions() []string {
	exts := make([]string, 0, len(SupportedImageFormats))
	for ext := range SupportedImageFormats {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// SniffFormat names the image container that head starts with
func SniffFormat(head []byte) (string, error) {
	for _, sig := range signatures {
		if sig.match(head) {
			return sig.format, nil
		}
	}
	return "", ErrUnsupported
}

// DetectFileFormat returns the format of a file from its extension, or its content
// when the extension is unknown
func DetectFileFormat(filePath string) (string, error) {
	if format, ok := SupportedImageFormats[strings.ToLower(filepath.Ext(filePath))]; ok {
		return format, nil
	}

	f, err := os.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	format, err := SniffFormat(head[:n])
	if err != nil {
		return "", fmt.Errorf("%s: %w", filePath, err)
	}
	return format, nil
}

// ImagesInDirectory walks dirPath for images. Files with a supported extension are
// taken as is; extension-less files are sniffed. Hidden directories are skipped.
func ImagesInDirectory(dirPath string) ([]string, error) {
	info, err := os.Stat(dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", dirPath)
	}

	var images []string
	err = filepath.WalkDir(dirPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dirPath && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}

		switch {
		case IsImageFile(path):
			images = append(images, path)
		case filepath.Ext(path) == "":
			if _, err := DetectFileFormat(path); err == nil {
				images = append(images, path)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	return images, nil
}

// ReadFileBytes reads a whole file of at most MaxFileSize bytes
func ReadFileBytes(filePath string) ([]byte, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := readLimited(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", filePath, err)
	}
	return data, nil
}

// readLimited reads r to the end, failing with ErrTooLarge past MaxFileSize
func readLimited(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, ErrTooLarge
	}
	return data, nil
}
