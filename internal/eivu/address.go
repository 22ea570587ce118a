package eivu

import (
	"fmt"
	"strings"

	"eivu-go/internal/model"
)

const (
	// peepshowMarker is appended to the media type of restricted content.
	peepshowMarker = "_peepshow"
	unknownMedia   = "unknown"
)

// Shard splits a hex digest into two-character path segments. The last
// segment is a single character when the digest has odd length.
func Shard(hash string) []string {
	segments := make([]string, 0, (len(hash)+1)/2)
	for i := 0; i < len(hash); i += 2 {
		end := min(i+2, len(hash))
		segments = append(segments, hash[i:end])
	}
	return segments
}

// MediaType returns the primary token of a content type ("audio/mpeg" ->
// "audio"), with the restricted marker appended for peepy content.
func MediaType(contentType string, peepy bool) string {
	token, _, _ := strings.Cut(contentType, "/")
	token = strings.ToLower(strings.TrimSpace(token))
	if token == "" {
		token = unknownMedia
	}
	if peepy {
		token += peepshowMarker
	}
	return token
}

// RemoteKey derives the object key for a file:
// <media type>/<sharded hash>/<sanitized asset name>.
func RemoteKey(file *model.File) string {
	parts := []string{MediaType(file.ContentType, file.Peepy)}
	parts = append(parts, Shard(strings.ToLower(file.ContentHash))...)
	parts = append(parts, Sanitize(file.StorageName()))
	return strings.Join(parts, "/")
}

// ObjectKey returns the key a file's object lives under: the key recorded
// when the transfer was accepted, or the derived key before that. Metadata
// applied after transfer never moves the object.
func ObjectKey(file *model.File) string {
	if file.RemoteKey != "" {
		return file.RemoteKey
	}
	return RemoteKey(file)
}

// Location identifies a bucket on a remote endpoint.
type Location struct {
	BucketName string
	Region     string
	Endpoint   string
}

// LocationFor returns the remote location of bucket. region may be nil.
func LocationFor(bucket *model.Bucket, region *model.Region) (Location, error) {
	if region == nil || !bucket.RegionID.Valid || strings.TrimSpace(region.Endpoint) == "" {
		return Location{}, fmt.Errorf("%w: %s", ErrMissingRegion, bucket.Name)
	}
	return Location{
		BucketName: bucket.Name,
		Region:     region.Name,
		Endpoint:   region.Endpoint,
	}, nil
}

// URL returns the public address of a file's object.
func URL(loc Location, file *model.File) string {
	return fmt.Sprintf("https://%s.%s/%s", loc.BucketName, loc.Endpoint, ObjectKey(file))
}
