// Package mongostore is the MongoDB implementation of the notification
// record store. Channel outcomes are applied as targeted, channel-keyed
// $set updates rather than whole-document writes, which is what keeps
// concurrent per-channel status updates on one record from losing each
// other. Expiry uses a TTL index on expiresAt.
package mongostore
