// Package channel provides the delivery channel adapters: email through
// Postmark, SMS through Twilio, and push through an FCM-style HTTP provider.
// Each adapter is capability-tagged with the channel it serves and is
// injected into the dispatcher, so deployments pick the channels they
// support and tests substitute fakes.
//
// Adapters report missing contact data with notify.ErrContactMissing and
// provider failures with notify.TransportError; the dispatcher records
// either on the channel's status without failing other channels.
package channel
