// Package portal is the captive provisioning portal.
//
// While the access point is up the portal serves a single form (network
// name, password, MQTT server and port) and answers every DNS A query with
// the access point's address, so phones and laptops open the form on their
// own. Accepted forms are delivered on Submissions(); the portal never
// applies them itself.
package portal
