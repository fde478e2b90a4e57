package core

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"
)

// Link is a single short code mapped to its destination. Owned by the
// datastore; every other component treats it as a value.
type Link struct {
	ID          int64     `db:"id" json:"id"`
	OwnerID     int64     `db:"owner_id" json:"-"`
	ShortCode   string    `db:"short_code" json:"shortUrl"`
	OriginalURL string    `db:"original_url" json:"originalUrl"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	ExpiresAt   time.Time `db:"expires_at" json:"expiresAt"`
	ClickCount  int64     `db:"click_count" json:"clickCount"`
}

// User is an account that owns links.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// MaxURLLength is the maximum allowed length of an original URL.
const MaxURLLength = 2083

const (
	// base62Chars are the characters used for generating short codes.
	base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	// ShortCodeLength is the length of generated short codes. 62^7 keys
	// leaves the space orders of magnitude larger than any realistic
	// record count.
	ShortCodeLength = 7
)

// GenerateShortCode creates a random, URL-friendly string. Safe for
// concurrent use; uniqueness is enforced by the store at reservation time,
// not here.
func GenerateShortCode() (string, error) {
	result := make([]byte, ShortCodeLength)
	for i := range result {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(base62Chars))))
		if err != nil {
			return "", fmt.Errorf("generateShortCode: %w", err)
		}
		result[i] = base62Chars[num.Int64()]
	}
	return string(result), nil
}
