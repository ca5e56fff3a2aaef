package parser

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// idFunc synthesizes an item id from the item's identifying fields.
type idFunc func(parts ...string) string

func randomID(...string) string {
	return uuid.NewString()
}

func contentHashID(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return "urn:sha256:" + hex.EncodeToString(hash[:])
}

type Option func(*options)

type options struct {
	newID idFunc
}

// WithStableIDs makes items without a guid, link or id get an id derived from
// their content, so re-parsing identical content yields identical ids.
func WithStableIDs() Option {
	return func(o *options) {
		o.newID = contentHashID
	}
}

func newOptions(opts []Option) options {
	o := options{newID: randomID}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
