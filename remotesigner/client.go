package remotesigner

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/blockberries/leaderkms/keyring"
	"github.com/blockberries/leaderkms/types"
)

// Errors
var (
	ErrRemote           = errors.New("remote signer error")
	ErrRequestMismatch  = errors.New("response does not match request")
	ErrInvalidResponse  = errors.New("invalid response from remote signer")
	ErrClientClosed     = errors.New("remote signer client closed")
	ErrEmptySubject     = errors.New("empty remote signer subject")
	ErrNonPositiveLimit = errors.New("timeout must be positive")
)

// Requester sends a request and waits for the reply. *nats.Conn satisfies it.
type Requester interface {
	Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error)
}

// Client is a keyring.Backend backed by a remote Server
type Client struct {
	conn    Requester
	nc      *nats.Conn
	subject string
	timeout time.Duration
}

// Dial connects to the NATS server at url and returns a client for subject
func Dial(url, subject string, timeout time.Duration) (*Client, error) {
	if timeout <= 0 {
		return nil, ErrNonPositiveLimit
	}
	nc, err := nats.Connect(url, nats.Name("leaderkms"), nats.Timeout(timeout))
	if err != nil {
		return nil, errors.Wrapf(err, "connecting to %s", url)
	}

	c, err := NewClient(nc, subject, timeout)
	if err != nil {
		nc.Close()
		return nil, err
	}
	c.nc = nc
	return c, nil
}

// NewClient creates a client that sends requests through conn
func NewClient(conn Requester, subject string, timeout time.Duration) (*Client, error) {
	if subject == "" {
		return nil, ErrEmptySubject
	}
	if timeout <= 0 {
		return nil, ErrNonPositiveLimit
	}
	return &Client{
		conn:    conn,
		subject: subject,
		timeout: timeout,
	}, nil
}

// Sign implements keyring.Backend
func (c *Client) Sign(msg []byte) (types.Signature, error) {
	req := SignRequest{RequestID: uuid.NewString(), SignBytes: msg}
	var resp SignResponse
	if err := c.roundTrip(signSubject(c.subject), req, &resp); err != nil {
		return types.Signature{}, err
	}
	if resp.RequestID != req.RequestID {
		return types.Signature{}, errors.Wrapf(ErrRequestMismatch, "sent %s, got %s", req.RequestID, resp.RequestID)
	}
	if resp.Error != "" {
		return types.Signature{}, errors.Wrap(ErrRemote, resp.Error)
	}

	sig, err := types.NewSignature(resp.Signature)
	if err != nil {
		return types.Signature{}, errors.Wrap(ErrInvalidResponse, err.Error())
	}
	return sig, nil
}

// PublicKey implements keyring.Backend
func (c *Client) PublicKey() (types.PublicKey, error) {
	req := PublicKeyRequest{RequestID: uuid.NewString()}
	var resp PublicKeyResponse
	if err := c.roundTrip(pubKeySubject(c.subject), req, &resp); err != nil {
		return types.PublicKey{}, err
	}
	if resp.RequestID != req.RequestID {
		return types.PublicKey{}, errors.Wrapf(ErrRequestMismatch, "sent %s, got %s", req.RequestID, resp.RequestID)
	}
	if resp.Error != "" {
		return types.PublicKey{}, errors.Wrap(ErrRemote, resp.Error)
	}

	pk, err := types.NewPublicKey(resp.PublicKey)
	if err != nil {
		return types.PublicKey{}, errors.Wrap(ErrInvalidResponse, err.Error())
	}
	return pk, nil
}

func (c *Client) roundTrip(subject string, req, resp interface{}) error {
	if c.conn == nil {
		return ErrClientClosed
	}

	data, err := json.Marshal(req)
	if err != nil {
		return errors.Wrap(err, "marshal request")
	}

	msg, err := c.conn.Request(subject, data, c.timeout)
	if err != nil {
		return errors.Wrapf(err, "request %s", subject)
	}

	if err := json.Unmarshal(msg.Data, resp); err != nil {
		return errors.Wrap(ErrInvalidResponse, err.Error())
	}
	return nil
}

// Close closes the NATS connection opened by Dial
func (c *Client) Close() error {
	if c.nc != nil {
		c.nc.Close()
		c.nc = nil
	}
	c.conn = nil
	return nil
}

// Ensure Client implements keyring.Backend
var _ keyring.Backend = (*Client)(nil)
