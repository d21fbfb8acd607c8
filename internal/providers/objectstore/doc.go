// Package objectstore implements the storage service over an
// S3-compatible object store.
//
// Uploads carry their payload inline, as text in "content" or base64 in
// "contentBase64". Size and content-type limits are checked during
// validation, before any call reaches the store. Downloads return text
// payloads verbatim and everything else base64 encoded.
package objectstore
