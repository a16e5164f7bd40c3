package controller

import (
	"io"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Transcode job keys are sha1 hex.
var jobKeyPattern = regexp.MustCompile(`^[a-f0-9]{40}$`)

var streamContentTypes = map[string]string{
	".m3u8": "application/vnd.apple.mpegurl",
	".ts":   "video/mp2t",
	".m4s":  "video/iso.segment",
	".mp4":  "video/mp4",
	".key":  "application/octet-stream",
}

// serveStreamFile serves one manifest or segment of a transcode job's
// output. http.ServeFile handles range requests.
func (c *controller) serveStreamFile(w http.ResponseWriter, r *http.Request) {
	jobKey := chi.URLParam(r, "job-key")
	file := chi.URLParam(r, "file")

	if !jobKeyPattern.MatchString(jobKey) || file != path.Base(file) || strings.HasPrefix(file, ".") {
		c.writeError(w, http.StatusBadRequest, "bad stream path")
		return
	}

	contentType, ok := streamContentTypes[strings.ToLower(path.Ext(file))]
	if !ok {
		c.writeError(w, http.StatusBadRequest, "unsupported stream file")
		return
	}

	full := filepath.Join(c.streamDir, jobKey, file)

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, full)
}

// Only these upstream headers are mirrored back to the caller; nothing
// else crosses the proxy.
var proxyHeaderWhitelist = []string{
	"Content-Type",
	"Content-Length",
	"Content-Range",
	"Accept-Ranges",
	"Content-Disposition",
}

// serveProxy forwards range requests to a restricted-origin source and
// streams the body back.
func (c *controller) serveProxy(w http.ResponseWriter, r *http.Request) {
	rawUrl := r.URL.Query().Get("url")
	if rawUrl == "" {
		c.writeError(w, http.StatusBadRequest, "url query parameter is required")
		return
	}

	target, err := url.Parse(rawUrl)
	if err != nil || (target.Scheme != "http" && target.Scheme != "https") {
		c.writeError(w, http.StatusBadRequest, "invalid url")
		return
	}

	if !c.proxyHostAllowed(target.Hostname()) {
		c.writeError(w, http.StatusForbidden, "host is not allowed")
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target.String(), nil)
	if err != nil {
		c.writeError(w, http.StatusInternalServerError, "failed to build upstream request")
		return
	}
	if rangeHeader := r.Header.Get("Range"); rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := c.proxyClient.Do(req)
	if err != nil {
		c.logger.WarnContext(r.Context(), "proxy upstream failed", "url", target.String(), "error", err)
		c.writeError(w, http.StatusBadGateway, "upstream request failed")
		return
	}
	defer resp.Body.Close()

	for _, header := range proxyHeaderWhitelist {
		if v := resp.Header.Get(header); v != "" {
			w.Header().Set(header, v)
		}
	}
	w.WriteHeader(resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		c.logger.InfoContext(r.Context(), "proxy copy interrupted", "error", err)
	}
}

func (c *controller) proxyHostAllowed(host string) bool {
	host = strings.ToLower(host)
	for _, allowed := range c.proxyAllowedHosts {
		if host == allowed || strings.HasSuffix(host, "."+allowed) {
			return true
		}
	}

	return false
}
