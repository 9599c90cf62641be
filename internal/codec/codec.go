// ABOUTME: Filename codec mapping an entry identity (id, timestamp, category) to a filename.
// ABOUTME: Structured parse of "[uuid]-[YYYY-MM-DD-HH-mm-ss]-[T].md" plus sidecar name derivation.
package codec

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/2389-research/freewrite/internal/models"
)

const (
	// BodyExt is the extension of primary entry documents.
	BodyExt = ".md"

	// SidecarSuffix replaces BodyExt to form the insight sidecar name.
	SidecarSuffix = "-ai.json"

	// FavoritesName is the process-wide favorites sidecar.
	FavoritesName = "favorites.json"

	// TimestampLayout is the fixed-width sortable timestamp embedded in filenames.
	TimestampLayout = "2006-01-02-15-04-05"

	fieldSep      = "]-["
	attachmentTag = "-photo"
)

// Fallback records why a decoded category was defaulted.
type Fallback int

const (
	FallbackNone    Fallback = iota
	FallbackAbsent           // no category field
	FallbackUnknown          // category field present but not a known tag
)

// Identity is the tuple encoded in a body filename.
type Identity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	Category  models.Category
	Fallback  Fallback
	Tag       string // raw tag as found in the filename, empty if absent
}

// ParseError reports a filename that cannot be decoded into an Identity.
type ParseError struct {
	Name   string
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse filename %q: %s", e.Name, e.Reason)
}

// Codec encodes and decodes filenames. Timestamps are written and read in Location.
type Codec struct {
	Location *time.Location
}

// New returns a codec for loc; nil means time.Local.
func New(loc *time.Location) Codec {
	if loc == nil {
		loc = time.Local
	}
	return Codec{Location: loc}
}

func (c Codec) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}

// Encode returns the canonical body filename for an identity.
func (c Codec) Encode(id uuid.UUID, createdAt time.Time, category models.Category) string {
	ts := createdAt.In(c.location()).Format(TimestampLayout)
	return "[" + id.String() + fieldSep + ts + fieldSep + category.Tag() + "]" + BodyExt
}

// Decode parses a body filename. A missing or unknown category tag is not an
// error: the identity carries DefaultCategory and a Fallback reason instead.
//
// Timestamps carry no UTC offset, so a wall time repeated by a daylight saving
// fall-back decodes to one of its two instants, and may be an hour off.
func (c Codec) Decode(name string) (Identity, error) {
	base, ok := strings.CutSuffix(name, BodyExt)
	if !ok {
		return Identity{}, &ParseError{Name: name, Reason: "missing " + BodyExt + " extension"}
	}
	if len(base) < 2 || base[0] != '[' || base[len(base)-1] != ']' {
		return Identity{}, &ParseError{Name: name, Reason: "fields must be bracketed"}
	}

	fields := strings.Split(base[1:len(base)-1], fieldSep)
	if len(fields) < 2 || len(fields) > 3 {
		return Identity{}, &ParseError{Name: name, Reason: fmt.Sprintf("expected 2 or 3 fields, found %d", len(fields))}
	}

	id, err := parseID(fields[0])
	if err != nil {
		return Identity{}, &ParseError{Name: name, Reason: err.Error()}
	}

	createdAt, err := time.ParseInLocation(TimestampLayout, fields[1], c.location())
	if err != nil {
		return Identity{}, &ParseError{Name: name, Reason: fmt.Sprintf("invalid timestamp %q", fields[1])}
	}

	ident := Identity{
		ID:        id,
		CreatedAt: createdAt,
		Category:  models.DefaultCategory,
		Fallback:  FallbackAbsent,
	}
	if len(fields) == 3 {
		ident.Tag = fields[2]
		if cat, known := models.CategoryFromTag(fields[2]); known {
			ident.Category = cat
			ident.Fallback = FallbackNone
		} else {
			ident.Fallback = FallbackUnknown
		}
	}
	return ident, nil
}

// parseID accepts only the canonical 36-character hyphenated UUID form.
func parseID(s string) (uuid.UUID, error) {
	if len(s) != 36 {
		return uuid.Nil, fmt.Errorf("invalid id %q", s)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q: %w", s, err)
	}
	return id, nil
}

// IsPrimary reports whether name has the body document extension. It does not
// validate the rest of the name; Decode does that.
func IsPrimary(name string) bool {
	return strings.HasSuffix(name, BodyExt)
}

// SidecarName derives the insight sidecar filename for a body filename.
func SidecarName(primary string) string {
	return strings.TrimSuffix(primary, BodyExt) + SidecarSuffix
}

// PrimaryFromSidecar inverts SidecarName.
func PrimaryFromSidecar(sidecar string) (string, bool) {
	base, ok := strings.CutSuffix(sidecar, SidecarSuffix)
	if !ok {
		return "", false
	}
	return base + BodyExt, true
}

// AttachmentName derives the attachment filename for an entry id.
// ext may be given with or without a leading dot; empty means "jpg".
func AttachmentName(id uuid.UUID, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	if ext == "" {
		ext = "jpg"
	}
	return "[" + id.String() + "]" + attachmentTag + "." + strings.ToLower(ext)
}

// AttachmentID extracts the entry id from an attachment filename.
func AttachmentID(name string) (uuid.UUID, bool) {
	rest, ok := strings.CutPrefix(name, "[")
	if !ok {
		return uuid.Nil, false
	}
	idPart, tail, ok := strings.Cut(rest, "]"+attachmentTag+".")
	if !ok || tail == "" || strings.Contains(tail, ".") {
		return uuid.Nil, false
	}
	id, err := parseID(idPart)
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}
