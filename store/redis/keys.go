package redis

// Redis key naming conventions for fairq data.
// All keys are prefixed with "fairq:" to avoid collisions.

const keyPrefix = "fairq:"

// dlqKey returns the key for a DLQ entry entity: fairq:dlq:{id}
func dlqKey(id string) string { return keyPrefix + "dlq:" + id }

// dlqIDsKey is the Set tracking all DLQ entry IDs for enumeration.
const dlqIDsKey = keyPrefix + "dlq_ids"
