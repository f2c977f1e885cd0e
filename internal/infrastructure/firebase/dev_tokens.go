package firebase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"chatsync/pkg/errors"
)

// DevTokenPrefix marks tokens accepted by DevAuthClient. A dev token is the
// prefix followed by the uid.
const DevTokenPrefix = "dev-"

// DevAuthClient stands in for Firebase Auth when the memory store is used.
// Accounts live only as long as the process.
type DevAuthClient struct {
	mu     sync.RWMutex
	emails map[string]string
	uids   map[string]struct{}
}

func NewDevAuthClient() *DevAuthClient {
	return &DevAuthClient{
		emails: make(map[string]string),
		uids:   make(map[string]struct{}),
	}
}

func (d *DevAuthClient) CreateUser(ctx context.Context, email, password, displayName string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	key := strings.ToLower(email)
	if _, ok := d.emails[key]; ok {
		return "", errors.Conflict("Email already in use")
	}
	if len(password) < 6 {
		return "", errors.BadRequest("Password is too weak", nil)
	}

	uid := uuid.New().String()
	d.emails[key] = uid
	d.uids[uid] = struct{}{}
	return uid, nil
}

// VerifyToken accepts dev tokens of registered users. Dev tokens never expire.
func (d *DevAuthClient) VerifyToken(ctx context.Context, token string) (string, time.Time, error) {
	uid, ok := strings.CutPrefix(token, DevTokenPrefix)
	if !ok {
		return "", time.Time{}, errors.Unauthorized("Invalid or expired token", nil)
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, known := d.uids[uid]; !known {
		return "", time.Time{}, errors.Unauthorized("Invalid or expired token", nil)
	}
	return uid, time.Time{}, nil
}

// GenerateToken returns the dev token for a registered uid.
func (d *DevAuthClient) GenerateToken(ctx context.Context, uid string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, known := d.uids[uid]; !known {
		return "", errors.NotFound("User", nil)
	}
	return DevTokenPrefix + uid, nil
}
