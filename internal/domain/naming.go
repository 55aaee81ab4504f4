package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

// MediaExt is the extension given to every downloaded clip
const MediaExt = ".mp4"

// ExtractID returns the last path segment of a page URL with any query string removed.
// https://share.zight.com/abc123?foo=1 -> abc123
func ExtractID(pageURL string) string {
	if i := strings.Index(pageURL, "?"); i >= 0 {
		pageURL = pageURL[:i]
	}
	return pageURL[strings.LastIndex(pageURL, "/")+1:]
}

// NamingPolicy picks the output filename of a resolved clip
type NamingPolicy struct {
	Prefix    string
	WantTitle bool
}

// FileName returns the filename for the item at the 1-based lineIndex.
// A prefix wins over the title, and the title wins over the page identifier.
func (p NamingPolicy) FileName(lineIndex int, pageURL string, media *ResolvedMedia) string {
	if p.Prefix != "" {
		return fmt.Sprintf("%s-%d%s", p.Prefix, lineIndex, MediaExt)
	}
	return DefaultFileName(pageURL, media, p.WantTitle)
}

// DefaultFileName is {title}.mp4 when a title is wanted and known, {identifier}.mp4 otherwise.
func DefaultFileName(pageURL string, media *ResolvedMedia, wantTitle bool) string {
	if wantTitle && media != nil && media.Title != "" {
		return SanitizeTitle(media.Title) + MediaExt
	}
	return ExtractID(pageURL) + MediaExt
}

// DisplayName is what logs show for an item: the title when used for naming, else the identifier.
func DisplayName(pageURL string, media *ResolvedMedia, wantTitle bool) string {
	if wantTitle && media != nil && media.Title != "" {
		return media.Title
	}
	return ExtractID(pageURL)
}

// SanitizeTitle keeps a title from escaping the output directory.
func SanitizeTitle(title string) string {
	title = strings.NewReplacer("/", "-", "\\", "-").Replace(title)
	if title == "." || title == ".." {
		return strings.Repeat("_", len(title))
	}
	return title
}

// OutputPath joins the output directory (default ".") with name.
func OutputPath(outputDir, name string) string {
	if outputDir == "" {
		outputDir = "."
	}
	return filepath.Join(outputDir, name)
}
