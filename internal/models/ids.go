package models

// IDs is an insertion-ordered set of user ids. A user appears at most once.
type IDs []int

// Has reports whether id is in the set.
func (s IDs) Has(id int) bool {
	for _, v := range s {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id unless it is already present.
func (s *IDs) Add(id int) bool {
	if s.Has(id) {
		return false
	}
	*s = append(*s, id)
	return true
}

// Remove deletes id, keeping the order of the rest.
func (s *IDs) Remove(id int) bool {
	for i, v := range *s {
		if v == id {
			*s = append((*s)[:i], (*s)[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns an independent copy. It never returns nil.
func (s IDs) Clone() IDs {
	out := make(IDs, len(s))
	copy(out, s)
	return out
}

// ContainerKind tells channels and DMs apart.
type ContainerKind int

const (
	KindChannel ContainerKind = iota + 1
	KindDM
)

func (k ContainerKind) String() string {
	switch k {
	case KindChannel:
		return "channel"
	case KindDM:
		return "dm"
	default:
		return "unknown"
	}
}

// ContainerRef points at a channel or a DM.
type ContainerRef struct {
	Kind ContainerKind `json:"kind"`
	ID   int           `json:"id"`
}
