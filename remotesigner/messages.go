package remotesigner

// SignRequest asks the remote backend to sign SignBytes
type SignRequest struct {
	RequestID string `json:"request_id"`
	SignBytes []byte `json:"sign_bytes"`
}

// SignResponse carries either a signature or an error message
type SignResponse struct {
	RequestID string `json:"request_id"`
	Signature []byte `json:"signature,omitempty"`
	Error     string `json:"error,omitempty"`
}

// PublicKeyRequest asks the remote backend for its public key
type PublicKeyRequest struct {
	RequestID string `json:"request_id"`
}

// PublicKeyResponse carries either a public key or an error message
type PublicKeyResponse struct {
	RequestID string `json:"request_id"`
	PublicKey []byte `json:"public_key,omitempty"`
	Error     string `json:"error,omitempty"`
}

func signSubject(base string) string {
	return base + ".sign"
}

func pubKeySubject(base string) string {
	return base + ".pubkey"
}
