package remotesigner

import (
	"encoding/json"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/blockberries/leaderkms/keyring"
)

// Server answers Client requests with a local backend
type Server struct {
	backend keyring.Backend
	subject string

	// The backend is driven one request at a time
	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewServer creates a server for backend on subject
func NewServer(backend keyring.Backend, subject string) (*Server, error) {
	if backend == nil {
		return nil, keyring.ErrNilBackend
	}
	if subject == "" {
		return nil, ErrEmptySubject
	}
	return &Server{backend: backend, subject: subject}, nil
}

// Start subscribes to the server's subjects on nc
func (s *Server) Start(nc *nats.Conn) error {
	handlers := map[string]func([]byte) []byte{
		signSubject(s.subject):   s.HandleSign,
		pubKeySubject(s.subject): s.HandlePublicKey,
	}

	for subject, handle := range handlers {
		handle := handle
		sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
			if err := m.Respond(handle(m.Data)); err != nil {
				log.Error().Err(err).Str("subject", m.Subject).Msg("Failed to respond to signing request")
			}
		})
		if err != nil {
			_ = s.Stop()
			return errors.Wrapf(err, "subscribe %s", subject)
		}
		s.subs = append(s.subs, sub)
	}

	log.Info().Str("subject", s.subject).Msg("Remote signer listening")
	return nil
}

// Stop unsubscribes from all subjects
func (s *Server) Stop() error {
	var firstErr error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.subs = nil
	return firstErr
}

// HandleSign processes an encoded SignRequest and returns an encoded
// SignResponse
func (s *Server) HandleSign(data []byte) []byte {
	var req SignRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return mustMarshal(SignResponse{Error: "malformed request: " + err.Error()})
	}

	s.mu.Lock()
	sig, err := s.backend.Sign(req.SignBytes)
	s.mu.Unlock()

	if err != nil {
		log.Warn().Err(err).Str("request_id", req.RequestID).Msg("Signing request rejected")
		return mustMarshal(SignResponse{RequestID: req.RequestID, Error: err.Error()})
	}

	log.Debug().Str("request_id", req.RequestID).Msg("Signed request")
	return mustMarshal(SignResponse{RequestID: req.RequestID, Signature: sig.Data})
}

// HandlePublicKey processes an encoded PublicKeyRequest and returns an
// encoded PublicKeyResponse
func (s *Server) HandlePublicKey(data []byte) []byte {
	var req PublicKeyRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return mustMarshal(PublicKeyResponse{Error: "malformed request: " + err.Error()})
	}

	s.mu.Lock()
	pk, err := s.backend.PublicKey()
	s.mu.Unlock()

	if err != nil {
		return mustMarshal(PublicKeyResponse{RequestID: req.RequestID, Error: err.Error()})
	}
	return mustMarshal(PublicKeyResponse{RequestID: req.RequestID, PublicKey: pk.Data})
}

func mustMarshal(v interface{}) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Response types only hold strings and byte slices
		panic(err)
	}
	return data
}
