package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"

	"marketpulse/internal/util"
)

// saveUploadedFile streams fh into dstDir through a temp file and renames it
// into place, returning the content hash and final path.
func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (hash, path string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*.pdf")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	hash, err = util.SHA256HexFromReader(io.TeeReader(src, tmp))
	if err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	finalPath, err := util.SafeJoin(dstDir, fh.Filename)
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", "", err
	}
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}
	return hash, finalPath, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	if v := m["file"]; len(v) > 0 {
		return v[0], true
	}
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}
