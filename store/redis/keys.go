package redis

// Redis key naming conventions for relay data.
// All keys are prefixed with "relay:" to avoid collisions.

const keyPrefix = "relay:"

// ── Subscription keys ──

// subKey returns the key for a subscription entity: relay:sub:{id}
func subKey(id string) string { return keyPrefix + "sub:" + id }

// tenantSubsKey returns the Set key indexing a tenant's subscription
// IDs: relay:tenant_subs:{tenantID}. The host scope uses an empty
// tenant ID, so its index is relay:tenant_subs: with no suffix.
func tenantSubsKey(tenantID string) string { return keyPrefix + "tenant_subs:" + tenantID }

// subIDsKey is the Set tracking all subscription IDs for enumeration.
const subIDsKey = keyPrefix + "sub_ids"

// ── Delivery keys ──

// dlvKey returns the key for a delivery entity: relay:dlv:{id}
func dlvKey(id string) string { return keyPrefix + "dlv:" + id }

// dueQueueKey is the Sorted Set holding due deliveries, scored by
// NextAttemptAt in unix milliseconds.
const dueQueueKey = keyPrefix + "due"

// dlvIDsKey is the Set tracking all delivery IDs for enumeration.
const dlvIDsKey = keyPrefix + "dlv_ids"

// attemptsKey returns the List key holding a delivery's attempt
// history: relay:attempts:{deliveryID}
func attemptsKey(deliveryID string) string { return keyPrefix + "attempts:" + deliveryID }

// ── Feature keys ──

// featuresKey returns the Hash key holding a tenant's feature grants:
// relay:features:{tenantID}
func featuresKey(tenantID string) string { return keyPrefix + "features:" + tenantID }
