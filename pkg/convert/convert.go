// Package convert turns office documents into PDF using a headless
// LibreOffice process. The output path is derived deterministically from the
// input path (same directory, .pdf extension), and the source document is
// always removed, so a failed conversion never leaves a stray upload behind.
package convert

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// ErrConversionFailed marks any failure to produce a readable PDF.
var ErrConversionFailed = errors.New("document conversion failed")

// Runner executes the external conversion command. Injectable for tests.
type Runner interface {
	Run(ctx context.Context, inputPath, outDir string) error
}

type sofficeRunner struct {
	binary string
}

func (r sofficeRunner) Run(ctx context.Context, inputPath, outDir string) error {
	cmd := exec.CommandContext(ctx, r.binary, "--headless", "--convert-to", "pdf", "--outdir", outDir, inputPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %s", err, bytes.TrimSpace(out))
	}
	return nil
}

// Converter drives document-to-PDF conversion.
type Converter struct {
	runner  Runner
	timeout time.Duration
}

// New creates a converter backed by the soffice binary.
func New(binary string, timeout time.Duration) *Converter {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "soffice"
	}
	return NewWithRunner(sofficeRunner{binary: binary}, timeout)
}

// NewWithRunner creates a converter with a custom command runner.
func NewWithRunner(runner Runner, timeout time.Duration) *Converter {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &Converter{runner: runner, timeout: timeout}
}

// OutputPath derives the sibling PDF path for an input document.
func OutputPath(inputPath string) string {
	ext := filepath.Ext(inputPath)
	return strings.TrimSuffix(inputPath, ext) + ".pdf"
}

// Convert produces a PDF next to inputPath and returns its path. The input
// file is deleted on success and on failure.
func (c *Converter) Convert(ctx context.Context, inputPath string) (string, error) {
	defer os.Remove(inputPath)

	outputPath := OutputPath(inputPath)
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.runner.Run(ctx, inputPath, filepath.Dir(inputPath)); err != nil {
		_ = os.Remove(outputPath)
		return "", fmt.Errorf("convert %s: %v: %w", filepath.Base(inputPath), err, ErrConversionFailed)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("converted output missing for %s: %w", filepath.Base(inputPath), ErrConversionFailed)
	}
	return outputPath, nil
}

// VerifyPDF checks that path holds a readable PDF with at least one page.
func VerifyPDF(path string) error {
	f, r, err := pdf.Open(path)
	if err != nil {
		return fmt.Errorf("open pdf %s: %v: %w", filepath.Base(path), err, ErrConversionFailed)
	}
	defer f.Close()
	if r.NumPage() < 1 {
		return fmt.Errorf("pdf %s has no pages: %w", filepath.Base(path), ErrConversionFailed)
	}
	return nil
}
