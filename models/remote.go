package models

import "time"

// RemoteFile describes one map file as listed by the remote backend.
type RemoteFile struct {
	FileID       string    `json:"file_id"`
	ModifiedTime time.Time `json:"modified_time"`
	Revision     string    `json:"revision"`
}

// MapPayload is the wire form of a map document on the remote backend:
// the document content plus the backend's metadata about it.
type MapPayload struct {
	Map          Map       `json:"map"`
	ModifiedTime time.Time `json:"modified_time"`
	Revision     string    `json:"revision"`
}
