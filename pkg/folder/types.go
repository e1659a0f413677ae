package folder

import (
	"mime"
	"path"
	"regexp"
	"strings"
)

// Structural item types. Items with these types are navigated into rather
// than played.
const (
	TypeFolder  = "folder"
	TypeList    = "list"
	TypeTag     = "tag"
	TypeArchive = "archive"
)

// Media kinds are the top-level part of a MIME type.
const (
	MediaImage = "image"
	MediaVideo = "video"
	MediaAudio = "audio"
)

// IsStructural reports whether t is one of the structural types.
func IsStructural(t string) bool {
	switch t {
	case TypeFolder, TypeList, TypeTag, TypeArchive:
		return true
	}
	return false
}

// IsContainer reports whether t is opened as a sub-list in place
// (folder, list or tag). Archives are structural but opened separately.
func IsContainer(t string) bool {
	return t == TypeFolder || t == TypeList || t == TypeTag
}

// MediaKind returns the part of t before the first "/".
func MediaKind(t string) string {
	kind, _, _ := strings.Cut(t, "/")
	return kind
}

// IsMedia reports whether t is an image, video or audio type.
func IsMedia(t string) bool {
	switch MediaKind(t) {
	case MediaImage, MediaVideo, MediaAudio:
		return true
	}
	return false
}

var thumbnailSizeSuffix = regexp.MustCompile(`=s\d+$`)

// PlayableThumbnail returns a copy of item that can be shown as an image when
// the item itself has no content source but carries a thumbnail URL
// (typical for cloud documents). ok is false when no substitution applies.
//
// googleusercontent thumbnails are re-requested at 1600px.
func PlayableThumbnail(item ContentInfo) (ContentInfo, bool) {
	if item.Content.Available() || !strings.HasPrefix(item.Type, "application/") {
		return item, false
	}
	if item.Thumbnail.Kind != SourceURL || item.Thumbnail.URL == "" {
		return item, false
	}

	url := item.Thumbnail.URL
	if strings.Contains(url, ".googleusercontent.com/") {
		url = thumbnailSizeSuffix.ReplaceAllString(url, "=s1600")
	}

	out := item
	out.Type = "image/jpeg"
	out.Content = URLSource(url)
	return out, true
}

// mediaExtensions covers the formats a media browser must recognize without
// depending on the host's mime.types.
var mediaExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".avif": "image/avif",
	".heic": "image/heic",
	".bmp":  "image/bmp",
	".svg":  "image/svg+xml",
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mkv":  "video/x-matroska",
	".mov":  "video/quicktime",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
	".wav":  "audio/wav",
	".txt":  "text/plain",
	".pdf":  "application/pdf",
	".zip":  "application/zip",
}

// TypeByExtension guesses a MIME type from a file name without reading it.
// Unknown extensions yield "application/octet-stream".
func TypeByExtension(name string) string {
	ext := strings.ToLower(path.Ext(name))
	if t, ok := mediaExtensions[ext]; ok {
		return t
	}
	if t := mime.TypeByExtension(ext); t != "" {
		t, _, _ = strings.Cut(t, ";")
		return t
	}
	return "application/octet-stream"
}
