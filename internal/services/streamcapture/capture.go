package streamcapture

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"gocv.io/x/gocv"

	"github.com/apambalik/RR-Traffic-Analysis-System/internal/helpers"
	"github.com/apambalik/RR-Traffic-Analysis-System/internal/models"
)

const maxConsecutiveErrors = 10

// Capture is an opened source. It is read by a single camera job.
type Capture struct {
	svc    *Service
	spec   models.SourceSpec
	cap    *gocv.VideoCapture
	img    gocv.Mat
	info   models.SourceInfo
	opened time.Time

	index             int64
	consecutiveErrors int
}

func (c *Capture) Info() models.SourceInfo {
	return c.info
}

// Next reads, resizes and JPEG-encodes the next frame. Files return io.EOF
// at their end; live streams back off and reconnect on read errors.
func (c *Capture) Next(ctx context.Context) (models.Frame, error) {
	for {
		if err := ctx.Err(); err != nil {
			return models.Frame{}, err
		}

		ok := c.cap.Read(&c.img)
		if !ok || c.img.Empty() {
			if c.spec.Kind == models.SourceFile {
				return models.Frame{}, io.EOF
			}
			if err := c.recover(ctx); err != nil {
				return models.Frame{}, err
			}
			continue
		}
		c.consecutiveErrors = 0

		pos := frameOffset(c.index, c.info.FPS)

		processed := gocv.NewMat()
		helpers.ResizeInto(c.img, &processed, c.svc.cfg.FrameWidth, c.svc.cfg.FrameHeight)
		data, err := helpers.EncodeJPEG(processed, c.svc.cfg.JPEGQuality)
		frame := models.Frame{
			Index:     c.index,
			Timestamp: sourceTimestamp(c.spec, c.opened, pos),
			Width:     processed.Cols(),
			Height:    processed.Rows(),
			Encoding:  "jpeg",
			Data:      data,
		}
		processed.Close()
		if err != nil {
			return models.Frame{}, fmt.Errorf("frame %d: %w", c.index, err)
		}

		c.index++
		return frame, nil
	}
}

// recover applies a progressive delay and, after too many consecutive
// errors, reopens the stream
func (c *Capture) recover(ctx context.Context) error {
	c.consecutiveErrors++
	log.Warn().
		Str("uri", c.spec.URI).
		Int("consecutive_errors", c.consecutiveErrors).
		Msg("Failed to read frame from VideoCapture")

	if c.consecutiveErrors >= maxConsecutiveErrors {
		log.Warn().
			Str("uri", c.spec.URI).
			Msg("Too many consecutive errors, attempting reconnect")

		c.cap.Close()
		configureFFmpegOptions(recoveryFFmpegOptions)
		capture, err := c.svc.openCapture(ctx, c.spec)
		if err != nil {
			c.cap = nil
			return fmt.Errorf("failed to reconnect after %d consecutive errors: %w", c.consecutiveErrors, err)
		}
		c.cap = capture
		c.consecutiveErrors = 0
		log.Info().Str("uri", c.spec.URI).Msg("VideoCapture reconnected")
		return nil
	}

	delay := time.Duration(c.consecutiveErrors*50) * time.Millisecond
	if delay > 2*time.Second {
		delay = 2 * time.Second
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (c *Capture) Close() error {
	c.img.Close()
	if c.cap != nil {
		err := c.cap.Close()
		c.cap = nil
		return err
	}
	return nil
}
