// Package info models resource metadata as namespaced documents. The
// basic namespace is always present; details, access and link are
// optional and only populated when a caller asks for them, since some
// backends pay per-namespace retrieval costs.
package info

import (
	"time"

	"github.com/anyfs/anyfs/pkg/fserrors"
	"github.com/anyfs/anyfs/pkg/fspath"
)

// Namespace names understood by every filesystem. Backends may expose
// additional namespaces through Info.Extra.
const (
	NamespaceBasic   = "basic"
	NamespaceDetails = "details"
	NamespaceAccess  = "access"
	NamespaceLink    = "link"
)

// ResourceType classifies a resource in the details namespace.
type ResourceType int

const (
	TypeUnknown ResourceType = iota
	TypeDirectory
	TypeFile
	TypeCharacter
	TypeBlockSpecial
	TypeFIFO
	TypeSocket
	TypeSymlink
)

func (t ResourceType) String() string {
	switch t {
	case TypeDirectory:
		return "directory"
	case TypeFile:
		return "file"
	case TypeCharacter:
		return "character"
	case TypeBlockSpecial:
		return "block_special"
	case TypeFIFO:
		return "fifo"
	case TypeSocket:
		return "socket"
	case TypeSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// Basic holds the namespace every backend must provide.
type Basic struct {
	Name  string
	IsDir bool
}

// Details holds sizes, timestamps and the resource type. Zero-valued
// timestamps mean the backend does not know.
type Details struct {
	Type            ResourceType
	Size            int64
	Accessed        time.Time
	Modified        time.Time
	Created         time.Time
	MetadataChanged time.Time

	// Writable lists the detail keys a SetInfo call may change, for
	// example "accessed" and "modified".
	Writable []string
}

// Access holds ownership and permission metadata.
type Access struct {
	Permissions []string
	User        string
	Group       string
	UID         int
	GID         int
}

// Link holds symlink metadata.
type Link struct {
	Target string
}

// Raw is the wire form of namespaced metadata: namespace name to key
// to value. SetInfo accepts Raw so callers can address backend
// namespaces the typed structs do not model.
type Raw map[string]map[string]interface{}

// Info is a point-in-time snapshot of one resource's metadata. Nil
// namespace pointers mean "not requested", not "empty".
type Info struct {
	Basic   Basic
	Details *Details
	Access  *Access
	Link    *Link

	// Extra carries backend-specific namespaces verbatim.
	Extra map[string]map[string]interface{}
}

// Name returns the resource name, empty for a filesystem root.
func (i *Info) Name() string { return i.Basic.Name }

// IsDir reports whether the resource is a directory.
func (i *Info) IsDir() bool { return i.Basic.IsDir }

// IsFile reports whether the resource is not a directory.
func (i *Info) IsFile() bool { return !i.Basic.IsDir }

// IsLink reports whether the resource is a symlink. Requires the
// details namespace; without it the answer is false.
func (i *Info) IsLink() bool {
	return i.Details != nil && i.Details.Type == TypeSymlink
}

// HasNamespace reports whether the given namespace was retrieved.
func (i *Info) HasNamespace(namespace string) bool {
	switch namespace {
	case NamespaceBasic:
		return true
	case NamespaceDetails:
		return i.Details != nil
	case NamespaceAccess:
		return i.Access != nil
	case NamespaceLink:
		return i.Link != nil
	default:
		_, ok := i.Extra[namespace]
		return ok
	}
}

// Type returns the resource type from the details namespace.
func (i *Info) Type() (ResourceType, error) {
	if i.Details == nil {
		return TypeUnknown, fserrors.MissingNamespace(NamespaceDetails)
	}
	return i.Details.Type, nil
}

// Size returns the resource size in bytes from the details namespace.
func (i *Info) Size() (int64, error) {
	if i.Details == nil {
		return 0, fserrors.MissingNamespace(NamespaceDetails)
	}
	return i.Details.Size, nil
}

// Modified returns the last-modified time from the details namespace.
// A zero time means the backend does not track it.
func (i *Info) Modified() (time.Time, error) {
	if i.Details == nil {
		return time.Time{}, fserrors.MissingNamespace(NamespaceDetails)
	}
	return i.Details.Modified, nil
}

// Accessed returns the last-accessed time from the details namespace.
func (i *Info) Accessed() (time.Time, error) {
	if i.Details == nil {
		return time.Time{}, fserrors.MissingNamespace(NamespaceDetails)
	}
	return i.Details.Accessed, nil
}

// Created returns the creation time from the details namespace.
func (i *Info) Created() (time.Time, error) {
	if i.Details == nil {
		return time.Time{}, fserrors.MissingNamespace(NamespaceDetails)
	}
	return i.Details.Created, nil
}

// Permissions returns the permission list from the access namespace.
func (i *Info) Permissions() ([]string, error) {
	if i.Access == nil {
		return nil, fserrors.MissingNamespace(NamespaceAccess)
	}
	return i.Access.Permissions, nil
}

// Target returns the symlink target from the link namespace.
func (i *Info) Target() (string, error) {
	if i.Link == nil {
		return "", fserrors.MissingNamespace(NamespaceLink)
	}
	return i.Link.Target, nil
}

// IsWritable reports whether a key in a namespace may be changed
// through SetInfo.
func (i *Info) IsWritable(namespace, key string) bool {
	if namespace != NamespaceDetails || i.Details == nil {
		return false
	}
	for _, k := range i.Details.Writable {
		if k == key {
			return true
		}
	}
	return false
}

// Get looks a value up by namespace and key, returning def when the
// namespace is absent or the key unknown. Unlike the typed accessors
// it never fails, which suits optional metadata.
func (i *Info) Get(namespace, key string, def interface{}) interface{} {
	switch namespace {
	case NamespaceBasic:
		switch key {
		case "name":
			return i.Basic.Name
		case "is_dir":
			return i.Basic.IsDir
		}
	case NamespaceDetails:
		if i.Details == nil {
			return def
		}
		switch key {
		case "type":
			return i.Details.Type
		case "size":
			return i.Details.Size
		case "accessed":
			return i.Details.Accessed
		case "modified":
			return i.Details.Modified
		case "created":
			return i.Details.Created
		case "metadata_changed":
			return i.Details.MetadataChanged
		}
	case NamespaceAccess:
		if i.Access == nil {
			return def
		}
		switch key {
		case "permissions":
			return i.Access.Permissions
		case "user":
			return i.Access.User
		case "group":
			return i.Access.Group
		case "uid":
			return i.Access.UID
		case "gid":
			return i.Access.GID
		}
	case NamespaceLink:
		if i.Link == nil {
			return def
		}
		if key == "target" {
			return i.Link.Target
		}
	default:
		if ns, ok := i.Extra[namespace]; ok {
			if v, ok := ns[key]; ok {
				return v
			}
		}
	}
	return def
}

// MakePath joins a directory path with the resource name.
func (i *Info) MakePath(dir string) string {
	return fspath.Combine(dir, i.Basic.Name)
}

// Copy returns a deep copy of the snapshot.
func (i *Info) Copy() *Info {
	clone := &Info{Basic: i.Basic}
	if i.Details != nil {
		d := *i.Details
		d.Writable = append([]string(nil), i.Details.Writable...)
		clone.Details = &d
	}
	if i.Access != nil {
		a := *i.Access
		a.Permissions = append([]string(nil), i.Access.Permissions...)
		clone.Access = &a
	}
	if i.Link != nil {
		l := *i.Link
		clone.Link = &l
	}
	if i.Extra != nil {
		clone.Extra = make(map[string]map[string]interface{}, len(i.Extra))
		for ns, kv := range i.Extra {
			inner := make(map[string]interface{}, len(kv))
			for k, v := range kv {
				inner[k] = v
			}
			clone.Extra[ns] = inner
		}
	}
	return clone
}

// Requested reports whether namespace was asked for in a GetInfo
// namespace list. The basic namespace is always implied.
func Requested(namespaces []string, namespace string) bool {
	if namespace == NamespaceBasic {
		return true
	}
	for _, ns := range namespaces {
		if ns == namespace {
			return true
		}
	}
	return false
}
