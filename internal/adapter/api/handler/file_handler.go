package handler

import (
	"fmt"
	"io"

	"github.com/labstack/echo/v4"

	"chatsync/pkg/errors"
	"chatsync/pkg/logger"
)

const maxUploadSize = 10 * 1024 * 1024

type upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// readFormFile reads the multipart part named field, bounded by maxUploadSize.
func readFormFile(c echo.Context, field string) (*upload, error) {
	file, err := c.FormFile(field)
	if err != nil {
		return nil, errors.BadRequest("No file uploaded", err)
	}

	logger.Debug("Received file: %s, size: %d bytes, type: %s", file.Filename, file.Size, file.Header.Get("Content-Type"))

	if file.Size > maxUploadSize {
		logger.Warn("File too large: %d bytes (max: %d)", file.Size, maxUploadSize)
		return nil, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", maxUploadSize/(1024*1024)), nil)
	}

	src, err := file.Open()
	if err != nil {
		return nil, errors.BadRequest("Failed to open uploaded file", err)
	}
	defer src.Close()

	data, err := io.ReadAll(io.LimitReader(src, maxUploadSize+1))
	if err != nil {
		return nil, errors.BadRequest("Failed to read uploaded file", err)
	}
	if len(data) == 0 {
		return nil, errors.BadRequest("Uploaded file is empty", nil)
	}
	if len(data) > maxUploadSize {
		return nil, errors.BadRequest(fmt.Sprintf("File size exceeds maximum allowed (%dMB)", maxUploadSize/(1024*1024)), nil)
	}

	return &upload{
		Name:     file.Filename,
		MimeType: file.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}
