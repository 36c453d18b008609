package utils

import (
	"fmt"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

var fileNameRegex = regexp.MustCompile(`[^a-zA-Z0-9_\-\. ]+`)

func GetRandomUserAgent() string {
	return userAgents[time.Now().UnixNano()%int64(len(userAgents))]
}

func ParseHeaderArgs(headers []string) map[string]string {
	result := make(map[string]string)
	for _, header := range headers {
		parts := strings.SplitN(header, ":", 2)
		if len(parts) == 2 {
			key := strings.TrimSpace(parts[0])
			value := strings.TrimSpace(parts[1])
			result[key] = value
		}
	}
	return result
}

// FileNameFromURL returns the unescaped last path segment of rawURL, or ""
// when the path ends in a slash or the URL cannot be parsed.
func FileNameFromURL(rawURL string) string {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := parsedURL.Path
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	name := path.Base(p)
	if name == "." || name == ".." || name == "/" {
		return ""
	}
	return name
}

func FileNameFromDisposition(contentDisposition string) string {
	if contentDisposition == "" {
		return ""
	}
	_, params, err := mime.ParseMediaType(contentDisposition)
	if err != nil {
		return ""
	}
	if fn, ok := params["filename"]; ok && fn != "" {
		return fileNameRegex.ReplaceAllString(fn, "_")
	}
	if fn, ok := params["filename*"]; ok && strings.HasPrefix(fn, "UTF-8''") {
		unescaped, _ := url.PathUnescape(strings.TrimPrefix(fn, "UTF-8''"))
		return fileNameRegex.ReplaceAllString(unescaped, "_")
	}
	return ""
}

// ResolveFileName picks the destination name: explicit name first, then the
// URL's last path segment, then the server-suggested name.
func ResolveFileName(explicit, rawURL, suggested string) string {
	if explicit != "" {
		return explicit
	}
	if name := FileNameFromURL(rawURL); name != "" {
		return name
	}
	if suggested != "" {
		return suggested
	}
	return DefaultFileName
}

// Preallocate creates (or truncates) outputPath and sizes it to exactly size
// bytes. On filesystems with sparse file support no blocks are written.
func Preallocate(outputPath string, size int64) error {
	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}
	f, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("error creating output file: %w", err)
	}
	if err := f.Truncate(size); err != nil {
		f.Close()
		return fmt.Errorf("error preallocating %d bytes: %w", size, err)
	}
	return f.Close()
}
