package models

// UploadedFile is the reference returned by a successful upload. It is the
// only handle later flows use; the gateway never keeps the file content.
type UploadedFile struct {
	FileID         string `json:"file_id"`
	Filename       string `json:"filename"`
	FileSize       int64  `json:"file_size"`
	ContentPreview string `json:"content_preview"`
}

// FileInfo is the metadata the backend reports for an uploaded file.
type FileInfo struct {
	FileID         string `json:"file_id"`
	Filename       string `json:"filename"`
	FileSize       int64  `json:"file_size"`
	UploadTime     string `json:"upload_time"`
	ContentPreview string `json:"content_preview"`
}
