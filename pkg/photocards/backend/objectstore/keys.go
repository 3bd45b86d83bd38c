// Package objectstore implements backend.ObjectStore on local disk and on S3.
package objectstore

import (
	"net/url"
	"strings"
)

// publicURL joins base, bucket and key into a retrieval URL
func publicURL(base, bucket, key string) string {
	return strings.TrimRight(base, "/") + "/" + bucket + "/" + url.PathEscape(key)
}

// keyAfterMarker returns the path segment that follows "/<bucket>/" in rawURL.
func keyAfterMarker(rawURL, bucket string) (string, bool) {
	marker := "/" + bucket + "/"
	idx := strings.Index(rawURL, marker)
	if idx < 0 {
		return "", false
	}
	rest := rawURL[idx+len(marker):]
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	key, err := url.PathUnescape(rest)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
