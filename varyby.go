package ratefunc

import (
	"net"
	"net/http"
	"strings"
)

// VaryBy derives a throttle key from an HTTP request, so that each client,
// host or endpoint gets a cooldown of its own. A nil *VaryBy puts every
// request under the empty key.
//
// Every enabled part is followed by Separator, so requests that differ
// only in which part is empty still get different keys. Parts appear in
// the order Method, Host, Path, RemoteAddr, Headers, Params, Cookies.
type VaryBy struct {
	// Method and Host are case-insensitive; Path is not.
	Method bool
	Host   bool
	Path   bool

	// RemoteAddr keys by client host; the ephemeral port is dropped so
	// that one client's connections share a cooldown.
	RemoteAddr bool

	// Headers values are lowercased. Params come from the query or a
	// form body. A missing header, param or cookie contributes an empty
	// part.
	Headers []string
	Params  []string
	Cookies []string

	// Separator defaults to a newline.
	Separator string
}

func (vb *VaryBy) Key(r *http.Request) string {
	if vb == nil {
		return ""
	}
	sep := vb.Separator
	if sep == "" {
		sep = "\n"
	}

	parts := make([]string, 0, 4+len(vb.Headers)+len(vb.Params)+len(vb.Cookies))
	if vb.Method {
		parts = append(parts, strings.ToLower(r.Method))
	}
	if vb.Host {
		parts = append(parts, strings.ToLower(r.Host))
	}
	if vb.Path {
		parts = append(parts, r.URL.Path)
	}
	if vb.RemoteAddr {
		parts = append(parts, clientHost(r.RemoteAddr))
	}
	for _, h := range vb.Headers {
		parts = append(parts, strings.ToLower(r.Header.Get(h)))
	}
	for _, p := range vb.Params {
		parts = append(parts, r.FormValue(p))
	}
	for _, name := range vb.Cookies {
		var v string
		if c, err := r.Cookie(name); err == nil {
			v = c.Value
		}
		parts = append(parts, v)
	}
	if len(parts) == 0 {
		return ""
	}
	return strings.Join(parts, sep) + sep
}

// clientHost strips the port from a RemoteAddr; addresses without one are
// returned lowercased as they are.
func clientHost(addr string) string {
	if host, _, err := net.SplitHostPort(addr); err == nil {
		addr = host
	}
	return strings.ToLower(addr)
}
