package domain

import "errors"

var (
	ErrNoStrategy       = errors.New("no extraction strategy configured")
	ErrUnknownExtractor = errors.New("unrecognized extractor capability")
	ErrNoNextHandler    = errors.New("no next handler available")
	ErrEmptyChain       = errors.New("ocr chain has no backends")
	ErrEmptyText        = errors.New("empty text")
	ErrEmptyResponse    = errors.New("empty response from language model")
	ErrInvalidJSON      = errors.New("response is not a valid json object")
	ErrOCRFailed        = errors.New("ocr processing failed")
	ErrRetriesExhausted = errors.New("retries exhausted")
	ErrUnsupportedImage = errors.New("unsupported image format")
)
