package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
)

var errRedirectBlocked = errors.New("redirects are not followed")

// CreateFromURL fetches rawURL and delegates to CreateFromBuffer. Only
// http/https URLs pointing at public addresses are accepted: the
// hostname (literal IPs included, bracketed IPv6 too) and every address
// it resolves to must be non-private. The fetch has a hard timeout and
// never follows redirects, so the validated host is the host served.
func (s *Store) CreateFromURL(ctx context.Context, kind Kind, rawURL string) (*Asset, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	if !s.allowPrivateHosts {
		if err := rejectPrivateHost(ctx, u.Hostname()); err != nil {
			return nil, err
		}
	}

	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%q: %w", rawURL, ErrInvalidURL)
	}
	client := &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return errRedirectBlocked
		},
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %v: %w", u.Host, err, ErrFetch)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: status %d: %w", u.Host, resp.StatusCode, ErrFetch)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("fetch %s: read body: %v: %w", u.Host, err, ErrFetch)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, fmt.Errorf("fetch %s: body over limit %d: %w", u.Host, s.maxBytes, ErrTooLarge)
	}

	return s.CreateFromBuffer(ctx, kind, body)
}

// rejectPrivateHost is the SSRF guard. host is either a literal address
// or a name; names are resolved and every returned address checked.
func rejectPrivateHost(ctx context.Context, host string) error {
	if addr, err := netip.ParseAddr(host); err == nil {
		if isPrivateAddr(addr) {
			return fmt.Errorf("host %s is not public: %w", host, ErrInvalidURL)
		}
		return nil
	}

	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return fmt.Errorf("resolve %s: %v: %w", host, err, ErrFetch)
	}
	if len(addrs) == 0 {
		return fmt.Errorf("resolve %s: no addresses: %w", host, ErrFetch)
	}
	for _, addr := range addrs {
		if isPrivateAddr(addr) {
			return fmt.Errorf("host %s resolves to non-public %s: %w", host, addr, ErrInvalidURL)
		}
	}
	return nil
}

func isPrivateAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified()
}
