// Package crypto holds the pure functions spec.md §1 treats as external
// collaborators: credential encryption at rest (Encrypt/Decrypt) and
// principal token issuance/verification (IssueToken/VerifyToken).
//
// Token handling is grounded on the teacher's internal/security/
// jwt_handler.go (golang-jwt/jwt/v4, HS256, explicit algorithm pinning).
// Credential encryption uses golang.org/x/crypto/nacl/secretbox — the
// teacher itself left credential encryption as a TODO
// (internal/security/api_key_manager.go), so this is supplemented from
// the rest of the retrieval pack: SudharshanMutalik46-ts-vms-v1.0,
// Spatial-NVR-SpatialNVR and vincent99-velocipi all carry
// golang.org/x/crypto in their module graphs.
package crypto
