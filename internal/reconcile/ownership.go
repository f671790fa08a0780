package reconcile

import (
	"strings"

	"github.com/yuriy-kovalchuk/yk-ddns/internal/dns"
)

// TaggedComment prefixes comment with the owner tag.
func TaggedComment(tag, comment string) string {
	return tag + " " + comment
}

// OwnedByComment reports whether rec's comment carries tag. This is the only
// proof of ownership the engine trusts before deleting a record.
func OwnedByComment(rec dns.Record, tag string) bool {
	return strings.HasPrefix(rec.Comment, tag)
}

// OwnedByName reports whether rec was created under the older convention of
// prefixing the record name with the tag.
func OwnedByName(rec dns.Record, tag string) bool {
	return strings.HasPrefix(rec.Name, tag)
}
