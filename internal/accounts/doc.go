// Package accounts implements human account flows.
//
// # Flows
//
//   - Register: hash the password, persist the user, send a hashed,
//     expiring verification token by email.
//   - Login: verify the password and issue a JWT. Unknown emails burn
//     a dummy bcrypt comparison so timing does not reveal whether an
//     address is registered, and both failure modes share one error.
//   - VerifyEmail / ResetPassword: consume one-time tokens. Tokens are
//     stored as SHA-256 hashes; consuming or replacing the password
//     clears them, making each token single-use.
//
// The Mailer collaborator receives the only plaintext copy of each
// token; LogMailer is the development stand-in.
package accounts
