package schema

import "strconv"

// PK is a generated primary key owned by entity E. Keys of different
// entities are distinct types and cannot be mixed up.
//
// The zero value marks an entity that has not been inserted yet; a successful
// insert returns a copy of the entity carrying the generated key.
type PK[E any] int64

// IsSaved reports whether the key was assigned by the backend.
func (k PK[E]) IsSaved() bool { return k != 0 }

// Int64 returns the storage value of the key.
func (k PK[E]) Int64() int64 { return int64(k) }

func (k PK[E]) String() string {
	if k == 0 {
		return "unsaved"
	}
	return strconv.FormatInt(int64(k), 10)
}
