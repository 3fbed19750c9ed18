package seeker

import "github.com/xraph/seeker/id"

// ID is the primary identifier type for all Seeker entities.
type ID = id.ID

// Prefix identifies the entity type encoded in a TypeID.
type Prefix = id.Prefix
