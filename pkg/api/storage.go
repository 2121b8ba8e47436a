package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/socialhub/socialhub-cli/pkg/client"
	"github.com/socialhub/socialhub-cli/pkg/logger"
)

const storagePrefix = "/storage/v1/object"

// ObjectPath returns the storage path of an object, each key segment escaped
func ObjectPath(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return storagePrefix + "/" + url.PathEscape(bucket) + "/" + strings.Join(segments, "/")
}

// PublicURL is the anonymous download URL of an object in a public bucket
func PublicURL(bucket, key string) string {
	return client.BaseURL() + strings.Replace(ObjectPath(bucket, key), storagePrefix, storagePrefix+"/public", 1)
}

// DeleteObject removes an object from storage
func DeleteObject(ctx context.Context, bucket, key string) error {
	logger.Debug("Deleting object", "bucket", bucket, "key", key)

	req := client.GetClient().R().SetContext(ctx)
	resp, err := client.Send(req, http.MethodDelete, ObjectPath(bucket, key))
	return CheckResponse(resp, err)
}
