package dto

import "time"

// CreatedDocument is returned by POST /api/v1/:collection
type CreatedDocument struct {
	ID        string    `json:"id"`
	Version   int64     `json:"version"`
	CreatedAt time.Time `json:"created_at"`
}

// DocumentList is returned by GET /api/v1/:collection
type DocumentList[T any] struct {
	Documents []T `json:"documents"`
}

// VersionResponse is returned by PATCH /api/v1/:collection/:id
type VersionResponse struct {
	Version int64 `json:"version"`
}

// MessageResponse carries a plain confirmation message
type MessageResponse struct {
	Message string `json:"message"`
}
