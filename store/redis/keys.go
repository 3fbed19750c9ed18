package redis

// Redis key naming conventions for seeker data.
// All keys are prefixed with "seeker:" to avoid collisions.

const keyPrefix = "seeker:"

// jobKey returns the key for a job entity: seeker:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// jobIDsKey is the Set tracking all job IDs for enumeration.
const jobIDsKey = keyPrefix + "job_ids"

// activeKey is the Set tracking non-terminal job IDs.
const activeKey = keyPrefix + "active"

// ownerKey returns the Sorted Set key holding an owner's job IDs,
// scored by creation time: seeker:owner:{id}
func ownerKey(ownerID string) string { return keyPrefix + "owner:" + ownerID }
