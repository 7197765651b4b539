package modeldata

import (
	"context"
	"io"
	"strings"
)

// BucketFetcher routes object keys to the bucket that publishes them.
// STOFS 3-D output lives in its own open-data bucket; everything else
// comes from the shared model bucket.
type BucketFetcher struct {
	Model Fetcher
	STOFS Fetcher
}

// Fetch dispatches on the key prefix.
func (f BucketFetcher) Fetch(ctx context.Context, key string, dst io.Writer) error {
	if strings.HasPrefix(key, "STOFS-3D-") && f.STOFS != nil {
		return f.STOFS.Fetch(ctx, key, dst)
	}
	return f.Model.Fetch(ctx, key, dst)
}
