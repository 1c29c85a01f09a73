package provider

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// DetectPublicCIDR returns the caller's public address as a /32 CIDR, for
// use in access-grant entries when no CIDR is configured.
func DetectPublicCIDR(ctx context.Context) (string, error) {
	client := &http.Client{Timeout: 15 * time.Second}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://checkip.amazonaws.com", nil)
	if err != nil {
		return "", zerr.Wrap(err, "failed to create checkip request")
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", zerr.Wrap(err, "failed to detect public address")
	}
	defer resp.Body.Close() //nolint:errcheck // Best effort close in defer

	body, err := io.ReadAll(io.LimitReader(resp.Body, 256))
	if err != nil {
		return "", zerr.Wrap(err, "failed to read checkip response")
	}

	addr := strings.TrimSpace(string(body))
	if addr == "" {
		return "", zerr.New("checkip returned empty response")
	}
	return addr + "/32", nil
}
