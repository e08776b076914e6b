package batch

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/bdobrica/termassist/internal/termassist/entry"
)

// Attribute names the entry field a listing reports.
type Attribute string

const (
	AttrName     Attribute = "name"
	AttrType     Attribute = "type"
	AttrSize     Attribute = "size"
	AttrModified Attribute = "modified"
	AttrCreated  Attribute = "created"
)

// Attributes lists the supported attributes in presentation order.
var Attributes = []Attribute{AttrName, AttrType, AttrSize, AttrModified, AttrCreated}

// ErrUnknownAttribute is wrapped by ParseAttribute for unsupported names.
var ErrUnknownAttribute = errors.New("unknown attribute")

const unknownValue = "unknown"

// accessors maps every supported attribute to its value renderer. Name has
// none: name listings print bare names.
var accessors = map[Attribute]func(entry.Entry) string{
	AttrType: func(e entry.Entry) string { return e.Kind.String() },
	AttrSize: func(e entry.Entry) string { return strconv.FormatInt(e.Size, 10) },
	AttrModified: func(e entry.Entry) string {
		return formatStamp(e.ModifiedAt)
	},
	AttrCreated: func(e entry.Entry) string {
		return formatStamp(e.CreatedAt)
	},
}

// ParseAttribute validates a caller-supplied attribute name.
func ParseAttribute(s string) (Attribute, error) {
	a := Attribute(strings.ToLower(strings.TrimSpace(s)))
	if a == AttrName {
		return a, nil
	}
	if _, ok := accessors[a]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w %q (want one of %s)", ErrUnknownAttribute, s, joinAttributes())
}

// line renders one entry for the listing.
func (a Attribute) line(e entry.Entry) string {
	get, ok := accessors[a]
	if !ok {
		return e.Name
	}
	return e.Name + " = " + get(e)
}

func formatStamp(t *time.Time) string {
	if t == nil {
		return unknownValue
	}
	return t.UTC().Format(time.RFC3339)
}

func joinAttributes() string {
	names := make([]string, len(Attributes))
	for i, a := range Attributes {
		names[i] = string(a)
	}
	return strings.Join(names, ", ")
}
