// File: internal/capture/encoder.go
package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"os"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"

	"github.com/xkilldash9x/macpilot-cli/internal/cache"
	"github.com/xkilldash9x/macpilot-cli/internal/config"
	"github.com/xkilldash9x/macpilot-cli/internal/results"
)

// Encoded is the output of the adaptive encoder.
type Encoded struct {
	Data      []byte `json:"-"`
	Base64    string `json:"base64,omitempty"`
	SizeBytes int    `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Quality   int    `json:"quality"`
	// UnderBudget is false when even the smallest achievable buffer
	// exceeds the byte budget; the smallest buffer is returned regardless.
	UnderBudget bool `json:"under_budget"`
}

// imageKey keys the encode cache. ModTime invalidates automatically when the
// source file changes.
type imageKey struct {
	Path     string
	Budget   int
	MaxWidth int
	ModTime  int64
}

// Encoder shrinks images under a byte budget: one downscale (never an
// upscale), a baseline encode, a descending quality ladder, and one final
// dimension-reduction pass. The loop is bounded, so it terminates even when
// the budget is unreachable and returns the smallest buffer achieved.
type Encoder struct {
	cfg    config.Interface
	logger *zap.Logger
	cache  *cache.Cache[imageKey, Encoded]
}

// NewEncoder creates the adaptive encoder.
func NewEncoder(cfg config.Interface, logger *zap.Logger) *Encoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	caches := cfg.Caches()
	return &Encoder{
		cfg:    cfg,
		logger: logger.Named("capture"),
		cache:  cache.New[imageKey, Encoded](caches.ImageCapacity, caches.ImageTTL),
	}
}

// EncodeFile loads the image at path and encodes it under the configured
// budget. Results are cached per (path, budget, maxWidth, mtime).
func (e *Encoder) EncodeFile(path string) results.Result[Encoded] {
	shot := e.cfg.Screenshot()

	info, err := os.Stat(path)
	if err != nil {
		return results.Failf[Encoded](results.CodeInvalidInput, "cannot stat source image: %v", err)
	}
	key := imageKey{
		Path:     path,
		Budget:   shot.MaxSizeBytes,
		MaxWidth: shot.MaxWidth,
		ModTime:  info.ModTime().UnixNano(),
	}
	if cached, ok := e.cache.Get(key); ok {
		e.logger.Debug("image cache hit", zap.String("path", path))
		return results.OK(cached)
	}

	img, err := imaging.Open(path)
	if err != nil {
		return results.Failf[Encoded](results.CodeProcessFailed, "cannot decode source image: %v", err)
	}

	encoded, err := e.Encode(img, shot.MaxSizeBytes, shot.MaxWidth)
	if err != nil {
		return results.Failf[Encoded](results.CodeProcessFailed, "encoding failed: %v", err)
	}
	e.cache.Set(key, encoded)
	return results.OK(encoded)
}

// Encode runs the adaptive pipeline on an in-memory image.
func (e *Encoder) Encode(img image.Image, budgetBytes, maxWidth int) (Encoded, error) {
	shot := e.cfg.Screenshot()
	if budgetBytes <= 0 {
		return Encoded{}, fmt.Errorf("byte budget must be positive, got %d", budgetBytes)
	}

	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	best, err := encodeJPEG(img, shot.BaselineQuality)
	if err != nil {
		return Encoded{}, err
	}
	bestQuality := shot.BaselineQuality

	if len(best) > budgetBytes {
		// Quality ladder: fixed descending steps below baseline.
		for q := shot.BaselineQuality - shot.QualityStep; q >= shot.MinQuality; q -= shot.QualityStep {
			buf, err := encodeJPEG(img, q)
			if err != nil {
				return Encoded{}, err
			}
			if len(buf) < len(best) {
				best = buf
				bestQuality = q
			}
			if len(buf) <= budgetBytes {
				break
			}
		}
	}

	if len(best) > budgetBytes {
		// Last resort: one dimension-reduction pass at floor quality. The
		// reduced dimensions apply only when the reduced encode wins;
		// otherwise the reported size must stay that of the best buffer.
		reducedWidth := int(float64(img.Bounds().Dx()) * 0.8)
		if reducedWidth >= 1 {
			reduced := imaging.Resize(img, reducedWidth, 0, imaging.Lanczos)
			buf, err := encodeJPEG(reduced, shot.MinQuality)
			if err != nil {
				return Encoded{}, err
			}
			if len(buf) < len(best) {
				best = buf
				bestQuality = shot.MinQuality
				img = reduced
			}
		}
	}

	out := Encoded{
		Data:        best,
		Base64:      base64.StdEncoding.EncodeToString(best),
		SizeBytes:   len(best),
		Width:       img.Bounds().Dx(),
		Height:      img.Bounds().Dy(),
		Quality:     bestQuality,
		UnderBudget: len(best) <= budgetBytes,
	}
	if !out.UnderBudget {
		e.logger.Warn("byte budget unreachable, returning smallest buffer",
			zap.Int("budget", budgetBytes), zap.Int("size", out.SizeBytes))
	}
	return out, nil
}

// ClearCache drops all cached encodes.
func (e *Encoder) ClearCache() { e.cache.Clear() }

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("jpeg encode at quality %d: %w", quality, err)
	}
	return buf.Bytes(), nil
}
