package registry

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime"
	"strings"
)

// Verification is the outcome of checking a provider artifact against the
// published hash manifest.
type Verification int

const (
	// VerifyUnknown means the manifest or the entry was unavailable; the
	// load proceeds with a warning.
	VerifyUnknown Verification = iota

	// VerifyMatch means the artifact hash matches the manifest.
	VerifyMatch

	// VerifyMismatch means the hashes differ; the load is refused.
	VerifyMismatch
)

func (v Verification) String() string {
	switch v {
	case VerifyMatch:
		return "match"
	case VerifyMismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// manifest is the published hash document: provider artifact names mapped
// to SHA-256 hex digests.
type manifest struct {
	Providers map[string]string `json:"providers"`
}

// fetchManifest loads "{version}.json" from the manifest base URL,
// falling back to "latest.json" when the versioned document is missing.
func fetchManifest(ctx context.Context, client *http.Client, baseURL, version string) (*manifest, error) {
	names := []string{"latest.json"}
	if version != "" {
		names = []string{version + ".json", "latest.json"}
	}

	var lastErr error
	for _, name := range names {
		url := strings.TrimSuffix(baseURL, "/") + "/" + name
		m, err := fetchManifestDoc(ctx, client, url)
		if err == nil {
			return m, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func fetchManifestDoc(ctx context.Context, client *http.Client, url string) (*manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching manifest %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest %s: HTTP %d", url, resp.StatusCode)
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	var m manifest
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", url, err)
	}
	return &m, nil
}

// lookup resolves the expected hash for an artifact, trying the
// platform-qualified key first and the legacy bare key after.
func (m *manifest) lookup(artifact string) (string, bool) {
	if m == nil || m.Providers == nil {
		return "", false
	}
	if h, ok := m.Providers[artifact+"-"+runtime.GOOS]; ok {
		return h, true
	}
	h, ok := m.Providers[artifact]
	return h, ok
}

// hashFile computes the SHA-256 hex digest of a file.
func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// verifyArtifact checks a local artifact against the manifest. A missing
// manifest entry or unreadable file is Unknown, not Mismatch: only an
// explicit hash difference refuses the load.
func verifyArtifact(m *manifest, artifactName, artifactPath string) Verification {
	expected, ok := m.lookup(artifactName)
	if !ok {
		return VerifyUnknown
	}
	actual, err := hashFile(artifactPath)
	if err != nil {
		return VerifyUnknown
	}
	if strings.EqualFold(expected, actual) {
		return VerifyMatch
	}
	return VerifyMismatch
}
