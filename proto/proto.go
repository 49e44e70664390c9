// Package proto defines the wire contract between the user pool and the custom challenge
// triggers: trigger events, session history entries, decision responses and errors.
//
// JSON field names follow the user pool trigger event format, so events can be decoded
// directly from a Lambda invocation payload or from the HTTP trigger endpoint.
package proto
