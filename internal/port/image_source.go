package port

import "context"

// ImageObject is a raw encoded image and the key it was loaded from.
type ImageObject struct {
	Key  string
	Body []byte
}

// ImageSource lists and loads encoded receipt images.
type ImageSource interface {
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, key string) (*ImageObject, error)
}
