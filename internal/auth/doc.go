// Package auth verifies the credentials a SOCKS5 client presents.
//
// Stores implement Authenticate(ctx, username, password) and are combined
// with Chain:
//   - Static: plaintext pairs from the command line
//   - FileStore: "user:hash" lines, hashes produced by NewPasswordHash
//   - DBStore: a SQLite users table managed through gorm
//
// Password hashes use scrypt and are encoded as $7$<cost>$<salt>$<key>, with
// salt and key in standard base64.
package auth
