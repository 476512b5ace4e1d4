package update

import "time"

// ManifestAssetName marks a release as packaged for this update mechanism.
const ManifestAssetName = "manifest.json"

// Release represents a release record as published by the registry
type Release struct {
	URL         string    `json:"url"`
	HTMLURL     string    `json:"html_url"`
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Body        string    `json:"body"` // Changelog/release notes
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset represents a downloadable release asset
type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
	Size               int64  `json:"size"`
	ContentType        string `json:"content_type"`
}

// Candidate is a release that passed every selection filter.
type Candidate struct {
	Name    string
	Tag     string
	Version Version
	Assets  []Asset
}

// FindAsset finds an asset by exact name in the release
func (r *Release) FindAsset(name string) *Asset {
	return findAsset(r.Assets, name)
}

// FindAsset finds an asset by exact name in the candidate
func (c *Candidate) FindAsset(name string) *Asset {
	return findAsset(c.Assets, name)
}

// Manifest returns the manifest asset of the candidate, if present.
func (c *Candidate) Manifest() *Asset {
	return c.FindAsset(ManifestAssetName)
}

func findAsset(assets []Asset, name string) *Asset {
	for i := range assets {
		if assets[i].Name == name {
			return &assets[i]
		}
	}
	return nil
}
