package resolver

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

type SourceType string

const (
	SourceTypeYouTube    SourceType = "youtube"
	SourceTypeHLS        SourceType = "hls"
	SourceTypeDirect     SourceType = "direct"
	SourceTypeTranscode  SourceType = "transcode"
	SourceTypeRestricted SourceType = "restricted"
)

var ErrInvalidURL = errors.New("invalid media url")

// Resolution is the normalized form of one input reference. Urls holds
// one or more concrete playable urls in the caller's order.
type Resolution struct {
	SourceType     SourceType
	Urls           []string
	NeedsTranscode bool
	NeedsProxy     bool
}

// Containers a browser cannot decode directly; these go through the
// transcode engine.
var transcodeExts = map[string]struct{}{
	".mkv": {}, ".avi": {}, ".flv": {}, ".wmv": {}, ".mov": {},
	".ts": {}, ".m2ts": {}, ".mpg": {}, ".mpeg": {}, ".vob": {},
}

var directExts = map[string]struct{}{
	".mp4": {}, ".webm": {}, ".ogg": {}, ".ogv": {},
	".mp3": {}, ".m4a": {}, ".aac": {}, ".wav": {},
}

type Resolver struct {
	restrictedHosts []string
}

func New(restrictedHosts []string) *Resolver {
	return &Resolver{restrictedHosts: restrictedHosts}
}

// Resolve classifies an input reference. The default implementation
// never expands a reference into more than one url; family-specific
// expansion lives behind the same interface.
func (r *Resolver) Resolve(_ context.Context, input string) (Resolution, error) {
	u, err := url.Parse(strings.TrimSpace(input))
	if err != nil {
		return Resolution{}, fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Resolution{}, fmt.Errorf("%w: %q", ErrInvalidURL, input)
	}

	res := Resolution{Urls: []string{u.String()}}

	host := strings.ToLower(u.Hostname())
	if host == "youtu.be" || host == "youtube.com" || strings.HasSuffix(host, ".youtube.com") {
		res.SourceType = SourceTypeYouTube
		return res, nil
	}

	for _, restricted := range r.restrictedHosts {
		if host == restricted || strings.HasSuffix(host, "."+restricted) {
			res.SourceType = SourceTypeRestricted
			res.NeedsProxy = true
			return res, nil
		}
	}

	ext := strings.ToLower(path.Ext(u.Path))
	switch {
	case ext == ".m3u8":
		res.SourceType = SourceTypeHLS
	case contains(transcodeExts, ext):
		res.SourceType = SourceTypeTranscode
		res.NeedsTranscode = true
	case contains(directExts, ext):
		res.SourceType = SourceTypeDirect
	default:
		res.SourceType = SourceTypeDirect
	}

	return res, nil
}

func contains(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
