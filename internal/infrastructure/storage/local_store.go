package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/c-pro/geche"

	"chatsync/pkg/errors"
)

const LocalMediaRoute = "/media"

type localObject struct {
	data     []byte
	mimeType string
}

// LocalMediaStore keeps uploads in process memory and serves them under
// LocalMediaRoute. It backs the memory store driver, where no bucket exists.
type LocalMediaStore struct {
	baseURL string
	objects geche.Geche[string, localObject]
}

func NewLocalMediaStore(baseURL string) *LocalMediaStore {
	return &LocalMediaStore{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		objects: geche.NewMapCache[string, localObject](),
	}
}

func (s *LocalMediaStore) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	name := path.Base(objectName(data, time.Now()))
	buf := make([]byte, len(data))
	copy(buf, data)
	s.objects.Set(name, localObject{data: buf, mimeType: mimeType})

	return fmt.Sprintf("%s%s/%s", s.baseURL, LocalMediaRoute, name), nil
}

// Get returns a stored object and its content type.
func (s *LocalMediaStore) Get(name string) ([]byte, string, error) {
	obj, err := s.objects.Get(name)
	if err != nil {
		return nil, "", errors.NotFound("Media", err)
	}
	return obj.data, obj.mimeType, nil
}
