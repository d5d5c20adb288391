package clist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// notAvailable is displayed for values the API did not provide
const notAvailable = "N/A"

// Resource is a contest-hosting platform known to clist.by
type Resource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

// Contest is a single entry of the contest listing
type Contest struct {
	ID         int64       `json:"id"`
	Event      string      `json:"event"`
	Start      string      `json:"start"` // ISO-8601 in UTC, kept verbatim
	End        string      `json:"end"`
	Duration   RawValue    `json:"duration"`
	Resource   ResourceRef `json:"resource"`
	ResourceID int64       `json:"resource_id"`
	Host       string      `json:"host"`
	Href       string      `json:"href"`
}

// StartTime parses the contest start as a UTC time.
// Offsets are honored when the API includes one.
func (c Contest) StartTime() (time.Time, error) {
	start := strings.TrimSpace(c.Start)
	if t, err := time.ParseInLocation(StartTimeLayout, start, time.UTC); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid contest start %q: %w", c.Start, err)
	}
	return t.UTC(), nil
}

// Platform returns the name of the platform hosting the contest.
// When the resource is missing the contest host is used instead.
func (c Contest) Platform() string {
	if c.Resource.Kind == RefMissing && c.Host != "" {
		return c.Host
	}
	return c.Resource.DisplayName()
}

type resourceList struct {
	Objects []Resource `json:"objects"`
}

type contestList struct {
	Objects []Contest `json:"objects"`
}

// RawValue keeps a loosely typed JSON scalar as text.
// The API is not strict about some fields, so decoding never fails on them.
type RawValue struct {
	text   string
	number bool
	set    bool
}

// NewRawValue creates a RawValue holding a string
func NewRawValue(text string) RawValue {
	return RawValue{text: text, set: true}
}

// UnmarshalJSON implements json.Unmarshaler
func (v *RawValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*v = RawValue{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = RawValue{text: s, set: true}
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*v = RawValue{text: n.String(), number: true, set: true}
		return nil
	}

	// Booleans, arrays and objects are kept as their JSON text
	*v = RawValue{text: string(data), set: true}
	return nil
}

// IsSet reports whether the field was present and not null
func (v RawValue) IsSet() bool {
	return v.set
}

// String returns the value as text, or N/A when unset
func (v RawValue) String() string {
	if !v.set {
		return notAvailable
	}
	return v.text
}

// Int parses the value as a whole number.
// JSON numbers with a fraction are truncated; strings must hold an integer.
// Numbers outside the int64 range are not whole numbers here.
func (v RawValue) Int() (int64, bool) {
	if !v.set {
		return 0, false
	}

	text := strings.TrimSpace(v.text)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return i, true
	}
	if !v.number {
		return 0, false
	}

	f, err := strconv.ParseFloat(text, 64)
	if err != nil || math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}

// RefKind tells which shape the resource field of a contest had
type RefKind int

const (
	// RefMissing means the field was absent or null
	RefMissing RefKind = iota
	// RefNamed means the field was a plain value naming the resource
	RefNamed
	// RefEmbedded means the field was an object carrying the resource's name
	RefEmbedded
)

// ResourceRef is the resource of a contest, which the API sends either
// as a plain name or as an embedded resource object.
type ResourceRef struct {
	Kind RefKind
	Name RawValue
	Host RawValue
}

// NamedRef creates a reference to a resource by name
func NamedRef(name string) ResourceRef {
	return ResourceRef{Kind: RefNamed, Name: NewRawValue(name)}
}

// EmbeddedRef creates a reference carrying an embedded resource object
func EmbeddedRef(name string) ResourceRef {
	return ResourceRef{Kind: RefEmbedded, Name: NewRawValue(name)}
}

// UnmarshalJSON implements json.Unmarshaler
func (r *ResourceRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*r = ResourceRef{Kind: RefMissing}
	case data[0] == '{':
		var embedded struct {
			Name RawValue `json:"name"`
			Host RawValue `json:"host"`
		}
		if err := json.Unmarshal(data, &embedded); err != nil {
			return err
		}
		*r = ResourceRef{Kind: RefEmbedded, Name: embedded.Name, Host: embedded.Host}
	default:
		var name RawValue
		if err := name.UnmarshalJSON(data); err != nil {
			return err
		}
		*r = ResourceRef{Kind: RefNamed, Name: name}
	}
	return nil
}

// DisplayName returns the text shown for the resource
func (r ResourceRef) DisplayName() string {
	switch r.Kind {
	case RefNamed:
		return r.Name.String()
	case RefEmbedded:
		if r.Name.IsSet() {
			return r.Name.String()
		}
		if r.Host.IsSet() {
			return r.Host.String()
		}
		return notAvailable
	default:
		return notAvailable
	}
}
