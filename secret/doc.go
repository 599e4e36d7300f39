// Package secret resolves configuration values that must not live in plain
// config files, chiefly the token signing secret.
//
// A value is either a literal (after strict environment expansion, see
// ExpandEnvStrict) or a reference of the form:
//
//	secretref:<provider>:<ref>
//
// Two providers ship with the package and are registered in DefaultRegistry:
//   - env:  secretref:env:GRIDGATE_SIGNING_SECRET
//   - file: secretref:file:/run/secrets/signing_secret
//
// Resolved values are never logged or included in errors.
package secret
