package utils

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// uploadDir is the local fallback store for badge assets when R2 is not
// configured. Served by the app under /uploads.
const uploadDir = "uploads"

// EnsureUploadDir creates the local upload directory if it doesn't exist
func EnsureUploadDir() error {
	return os.MkdirAll(uploadDir, os.ModePerm)
}

// UploadPath maps an asset key (e.g. "badges/arrays-1a2b3c4d.png") to its
// path inside the upload directory.
func UploadPath(key string) string {
	return filepath.Join(uploadDir, filepath.FromSlash(key))
}

// SaveUpload writes a multipart file under the upload directory for the
// given asset key, creating intermediate directories as needed.
func SaveUpload(fileHeader *multipart.FileHeader, key string) (string, error) {
	destPath := UploadPath(key)
	if err := os.MkdirAll(filepath.Dir(destPath), os.ModePerm); err != nil {
		return "", err
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	dst, err := os.Create(destPath)
	if err != nil {
		return "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", err
	}
	return destPath, nil
}
