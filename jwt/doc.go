// Package jwt assembles RS256 JSON Web Tokens that authenticate a GitHub App.
//
// # Components
//
//   - [EncodeSegment], [EncodeString], [NormalizeBase64]: base64url helpers.
//   - [BuildSigningInput] and [Assemble]: pure token construction.
//   - [Signer]: the only signing capability the assembler ever sees.
//   - [Assembler]: mints a token by probing an ordered list of [Candidate] signers.
//
// # Architecture boundaries
//
// The assembler performs no key parsing and no RSA math. Host adapters such as
// [NewRS256Signer] and [LoadPrivateKey] live in this package for convenience but are
// only reachable through the [Signer] interface.
//
// # What this package must NOT do
//
//   - Cache or reuse tokens past their exp claim.
//   - Return a partial token when every candidate fails.
//   - Read configuration from the environment.
package jwt
