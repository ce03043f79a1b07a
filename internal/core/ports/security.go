package ports

// SecurityPort encrypts data that must not be stored in the clear,
// such as push registration tokens.
type SecurityPort interface {
	Encrypt(plaintext []byte) (ciphertext []byte, err error)
	Decrypt(ciphertext []byte) (plaintext []byte, err error)
}
