// Package media classifies external media references and rewrites them
// into embeddable form. Normalization is pure and never fails: anything
// unrecognized or unparseable passes through unchanged as a direct file.
package media

import (
	"net/url"
	"strings"
)

// Kind classifies a normalized media reference.
type Kind int

const (
	// KindDirect is a plain media file played with native controls.
	KindDirect Kind = iota
	// KindYouTube is a YouTube video rewritten to its embed path.
	KindYouTube
	// KindDriveFile is a Google Drive file rewritten to its preview form.
	KindDriveFile
	// KindDriveFolder is a Drive folder link; folders cannot be embedded.
	KindDriveFolder
)

func (k Kind) String() string {
	switch k {
	case KindDirect:
		return "direct"
	case KindYouTube:
		return "youtube"
	case KindDriveFile:
		return "drive-file"
	case KindDriveFolder:
		return "drive-folder"
	default:
		return "unknown"
	}
}

// Media is the result of normalizing a raw URL. Target is the URL the
// viewer should load; for Drive files FileID is retained so the preview
// and view forms can both be rebuilt without string surgery on Target.
type Media struct {
	Kind     Kind
	Target   string
	FileID   string
	Original string
}

// Embeddable reports whether the target can be rendered inline.
func (m Media) Embeddable() bool {
	return m.Kind != KindDriveFolder
}

// Hosted reports whether the reference is a hosted-file-share link
// (Drive file or folder). Hosted documents are opened externally rather
// than inline: the provider blocks embedding often enough, and the
// failure cannot be detected synchronously.
func (m Media) Hosted() bool {
	return m.Kind == KindDriveFile || m.Kind == KindDriveFolder
}

// ViewURL returns the Drive "view" form for hosted files, used as the
// external fallback when inline preview is blocked by the provider. For
// everything else it returns the original URL.
func (m Media) ViewURL() string {
	if m.Kind == KindDriveFile && m.FileID != "" {
		return "https://drive.google.com/file/d/" + m.FileID + "/view"
	}
	return m.Original
}

// ControlHints describes how the player surface should be configured for
// a normalized reference. Hints are advisory: the underlying platform's
// own affordances cannot be suppressed from here.
type ControlHints struct {
	NativeControls  bool
	AllowDownload   bool
	AllowRemoteCast bool
	AllowFullscreen bool
}

// Hints returns the control-surface hints for the media kind.
func (m Media) Hints() ControlHints {
	switch m.Kind {
	case KindDirect:
		return ControlHints{NativeControls: true}
	case KindYouTube:
		return ControlHints{AllowFullscreen: true}
	default:
		// Drive previews carry no programmatic media controls.
		return ControlHints{}
	}
}

// Normalize classifies a raw media reference. Classification order:
// Drive-hosted links, then YouTube links, then passthrough. Malformed
// input passes through unchanged.
func Normalize(raw string) Media {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return Media{Kind: KindDirect, Target: raw, Original: raw}
	}

	host := strings.ToLower(u.Hostname())

	if isDriveHost(host) {
		return normalizeDrive(raw, u)
	}
	if m, ok := normalizeYouTube(raw, u, host); ok {
		return m
	}

	return Media{Kind: KindDirect, Target: raw, Original: raw}
}

func isDriveHost(host string) bool {
	return host == "drive.google.com" || host == "docs.google.com"
}

func normalizeDrive(raw string, u *url.URL) Media {
	if strings.Contains(u.Path, "/folders/") {
		return Media{Kind: KindDriveFolder, Target: raw, Original: raw}
	}

	id := driveFileID(u)
	if id == "" {
		return Media{Kind: KindDirect, Target: raw, Original: raw}
	}

	return Media{
		Kind:     KindDriveFile,
		Target:   "https://drive.google.com/file/d/" + id + "/preview",
		FileID:   id,
		Original: raw,
	}
}

// driveFileID extracts the file id from the two recognized file-link
// shapes: /file/d/<id>/... and ?id=<id>.
func driveFileID(u *url.URL) string {
	parts := strings.Split(u.Path, "/")
	for i := 0; i < len(parts)-1; i++ {
		if parts[i] == "d" && parts[i+1] != "" {
			return parts[i+1]
		}
	}
	return u.Query().Get("id")
}

func normalizeYouTube(raw string, u *url.URL, host string) (Media, bool) {
	switch host {
	case "youtu.be":
		id := strings.Trim(u.Path, "/")
		if i := strings.IndexByte(id, '/'); i >= 0 {
			id = id[:i]
		}
		if id == "" {
			return Media{Kind: KindDirect, Target: raw, Original: raw}, true
		}
		return embedMedia(raw, id), true

	case "youtube.com", "www.youtube.com", "m.youtube.com", "youtube-nocookie.com", "www.youtube-nocookie.com":
		if strings.HasPrefix(u.Path, "/embed/") {
			// Already in embed form; leave untouched.
			return Media{Kind: KindYouTube, Target: raw, Original: raw}, true
		}
		if id := u.Query().Get("v"); id != "" {
			return embedMedia(raw, id), true
		}
		// No extractable video id: best-effort passthrough.
		return Media{Kind: KindDirect, Target: raw, Original: raw}, true
	}
	return Media{}, false
}

func embedMedia(raw, id string) Media {
	return Media{
		Kind:     KindYouTube,
		Target:   "https://www.youtube.com/embed/" + id,
		Original: raw,
	}
}
