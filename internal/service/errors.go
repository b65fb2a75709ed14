package service

import (
	"context"
	"errors"
	"net"

	"go-image-enhancer/internal/codec"
	"go-image-enhancer/internal/enhancer"
	apperrors "go-image-enhancer/internal/errors"
	"go-image-enhancer/internal/storage"
)

// mapFetchError translates fetcher failures into AppErrors. Upstream 4xx and
// non-image content are the caller's fault; 5xx and transport errors are not.
func mapFetchError(err error) error {
	var fetchErr *storage.FetchError
	switch {
	case errors.As(err, &fetchErr) && !fetchErr.Retryable():
		return apperrors.NewValidationError(fetchErr.Message, nil)
	case errors.Is(err, storage.ErrNotImage):
		return apperrors.NewValidationError(storage.ErrNotImage.Error(), nil)
	case errors.Is(err, storage.ErrImageTooLarge):
		return apperrors.NewTooLargeError("Image exceeds size limit", nil)
	case isTimeout(err):
		return apperrors.NewTimeoutError("Timed out fetching image", err)
	default:
		return apperrors.NewNetworkError("Failed to fetch image", err)
	}
}

func mapProcessingError(err error) error {
	var appErr *apperrors.AppError
	var encErr *codec.EncodingError
	switch {
	case errors.As(err, &appErr):
		return err
	case errors.Is(err, enhancer.ErrImageTooLarge):
		return apperrors.NewTooLargeError("Image dimensions exceed limit", err)
	case errors.As(err, &encErr):
		return apperrors.NewEncodingError("Failed to encode image", err)
	case errors.Is(err, enhancer.ErrProcessingFailed):
		return apperrors.NewProcessingError("Failed to process image", err)
	case isTimeout(err):
		return apperrors.NewTimeoutError("Image processing timed out", err)
	case errors.Is(err, ErrPoolClosed):
		return apperrors.NewInternalError("Service is shutting down", err)
	default:
		return apperrors.NewInternalError("Image processing failed", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
