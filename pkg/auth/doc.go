// Package auth provides the identity collaborator consumed by the link
// dispatcher.
//
// The dispatcher never trusts the caller to say who the user is. It asks a
// Provider on every routing attempt:
//
//	authed, err := provider.IsAuthenticated(ctx)
//	user, err := provider.CurrentUser(ctx)
//
// Three providers are included:
//
//   - ContextProvider reads the Principal stored in the request context by
//     WithPrincipal. The HTTP Middleware populates it from a bearer token.
//   - Static always returns the same Principal (or none). Useful for the CLI
//     and for tests.
//   - ProviderFunc adapts a plain function.
//
// # Bearer Tokens
//
// JWTVerifier validates HS256 tokens and maps the claims sub, email, name,
// roles and permissions onto a Principal. Token issuance is out of scope;
// tokens are expected to be minted by the identity service.
//
//	verifier := auth.NewJWTVerifier(secret, auth.WithIssuer("waqiti"))
//	r.Use(auth.Middleware(verifier, logger))
//
// An invalid or expired token does not fail the request. The request simply
// carries no principal, and routes that require authentication answer with an
// authenticate action.
package auth
