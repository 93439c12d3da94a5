package safety

import "time"

// School is a registered campus with its shared-secret credentials.
type School struct {
	// ID is the opaque identifier assigned at registration, immutable after.
	ID string `json:"id"`
	// Name is the display name students search for.
	Name string `json:"name"`
	// District is an optional administrative grouping.
	District string `json:"district,omitempty"`
	// Buildings is the ordered set of distinct building names. Never empty;
	// entries may be added over the school's life but are not removed.
	Buildings []string `json:"buildings"`
	// JoinSecret gates student access. Never serialized to clients.
	JoinSecret string `json:"join_secret"`
	// AdminSecret gates administrator access. Always differs from JoinSecret.
	AdminSecret string `json:"admin_secret"`
	// RegisteredAt orders schools in search results.
	RegisteredAt time.Time `json:"registered_at"`
}

// Clone returns a deep copy of the school to avoid leaking internal references.
func (s *School) Clone() *School {
	if s == nil {
		return nil
	}

	cloned := *s
	cloned.Buildings = append([]string(nil), s.Buildings...)

	return &cloned
}

// HasBuilding reports whether name is one of the school's registered
// buildings. The match is case-sensitive.
func (s *School) HasBuilding(name string) bool {
	for _, b := range s.Buildings {
		if b == name {
			return true
		}
	}

	return false
}
