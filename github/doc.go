// Package github is the outbound REST collaborator: repository dispatch, installation
// lookup, and installation access tokens.
//
// Non-2xx responses are reported through [Response.Success] rather than as Go errors,
// so callers can treat a rejected credential as a normal negative outcome. Transport
// and encoding failures are returned as errors.
package github
