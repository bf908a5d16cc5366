package source

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Kind identifies where label text came from.
type Kind string

const (
	KindText    Kind = "text"
	KindFile    Kind = "file"
	KindStdin   Kind = "stdin"
	KindImage   Kind = "image"
	KindExample Kind = "example"
)

// maxInputBytes bounds how much label text is read from a file or stdin.
const maxInputBytes = 4 << 20

// ErrEmpty is returned when the resolved input holds no text.
var ErrEmpty = errors.New("no label text provided")

// Input is label text plus its origin.
type Input struct {
	Kind Kind
	Name string
	Text string
}

// FromArgs joins positional arguments into one label text.
func FromArgs(args []string) (Input, error) {
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return Input{}, ErrEmpty
	}
	return Input{Kind: KindText, Text: text}, nil
}

// FromReader reads label text from r, typically stdin.
func FromReader(r io.Reader) (Input, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxInputBytes))
	if err != nil {
		return Input{}, fmt.Errorf("reading stdin: %w", err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Input{}, ErrEmpty
	}
	return Input{Kind: KindStdin, Name: "stdin", Text: string(data)}, nil
}

// FromFile reads label text from a plain-text file or the text layer of a PDF.
func FromFile(path string) (Input, error) {
	var (
		text string
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		text, err = readPDF(path)
	} else {
		text, err = readText(path)
	}
	if err != nil {
		return Input{}, err
	}
	if strings.TrimSpace(text) == "" {
		return Input{}, fmt.Errorf("%s: %w", path, ErrEmpty)
	}
	return Input{Kind: KindFile, Name: path, Text: text}, nil
}

func readText(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxInputBytes))
	if err != nil {
		return "", fmt.Errorf("reading file: %w", err)
	}
	return string(data), nil
}

// readPDF extracts page text. The pdf reader panics on broken object
// references, so those are turned into errors.
func readPDF(path string) (_ string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading pdf: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		if f != nil {
			f.Close()
		}
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var b strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("extracting pdf page %d: %w", i, err)
		}
		if b.Len() > 0 && text != "" {
			b.WriteByte('\n')
		}
		b.WriteString(text)
		if b.Len() > maxInputBytes {
			break
		}
	}
	return b.String(), nil
}
