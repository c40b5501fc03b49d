package types

import "github.com/google/uuid"

// Id prefixes, kept from the document format older clients wrote.
const (
	PrefixTask     = "t"
	PrefixColumn   = "fld"
	PrefixOption   = "opt"
	PrefixGrid     = "grid"
	PrefixActivity = "act"
	PrefixComment  = "c"
)

// NewID generates "<prefix>_<uuid v7>".
func NewID(prefix string) string {
	id, err := uuid.NewV7()
	if err != nil {
		// Fallback to UUID v4 if v7 generation fails
		return prefix + "_" + uuid.New().String()
	}
	return prefix + "_" + id.String()
}
