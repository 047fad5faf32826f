package model

import (
	"net/url"
)

// An Asset references the image of an item.
//
// Handle is the durable reference given by the asset store. For images living in
// the remote store it is an opaque public id, for directly addressed images it is
// the URL itself. Address is the last known resolvable URL.
type Asset struct {
	Handle      string `json:"-"                   msgpack:"handle"`
	Address     string `json:"url"                 msgpack:"address"`
	ContentType string `json:"content_type,omitempty" msgpack:"content_type"`
	Size        int    `json:"size,omitempty"      msgpack:"size"`
	Width       int    `json:"width,omitempty"     msgpack:"width"`
	Height      int    `json:"height,omitempty"    msgpack:"height"`
	BlurHash    string `json:"blurhash,omitempty"  msgpack:"blurhash"`
}

// IsDirect returns true if the handle is a literal http(s) address.
func (a Asset) IsDirect() bool {
	return IsDirectHandle(a.Handle)
}

// IsDirectHandle returns true if the given handle is a literal http(s) address.
func IsDirectHandle(handle string) bool {
	u, err := url.Parse(handle)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
