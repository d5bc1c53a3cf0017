// Package messenger speaks the Facebook Messenger Platform: it decodes webhook
// envelopes, verifies their signature and delivers outbound payloads through the
// Graph API Send endpoint.
package messenger
