package entity

import (
	"fmt"
	"strings"
	"time"
)

// footerMarker starts the origin footer appended to restored bodies.
const footerMarker = "\n\n---\n*Originally "

// WithOriginFooter appends the original author and creation time to a body.
// Bodies that already carry a footer are returned unchanged.
func WithOriginFooter(body, author string, created time.Time) string {
	if strings.Contains(body, footerMarker) {
		return body
	}
	if author == "" {
		author = "ghost"
	}
	stamp := "an unknown date"
	if !created.IsZero() {
		stamp = created.UTC().Format("2006-01-02 15:04:05 UTC")
	}
	return fmt.Sprintf("%s%screated by @%s on %s*", body, footerMarker, author, stamp)
}
