package remotesigner

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/leaderkms/privval"
	"github.com/blockberries/leaderkms/types"
)

// loopback delivers requests straight to a Server's handlers
type loopback struct {
	server   *Server
	requests []string
	rewrite  func([]byte) []byte
	err      error
}

func (l *loopback) Request(subj string, data []byte, timeout time.Duration) (*nats.Msg, error) {
	l.requests = append(l.requests, subj)
	if l.err != nil {
		return nil, l.err
	}

	var resp []byte
	switch {
	case strings.HasSuffix(subj, ".sign"):
		resp = l.server.HandleSign(data)
	case strings.HasSuffix(subj, ".pubkey"):
		resp = l.server.HandlePublicKey(data)
	default:
		return nil, nats.ErrNoResponders
	}
	if l.rewrite != nil {
		resp = l.rewrite(resp)
	}
	return &nats.Msg{Subject: subj, Data: resp}, nil
}

func newFilePV(t *testing.T) *privval.FilePV {
	t.Helper()

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.json")
	pub, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	data, err := json.Marshal(privval.FilePVKey{PubKey: pub, PrivKey: priv})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(keyPath, data, 0600))

	pv, err := privval.LoadFilePV(keyPath, filepath.Join(dir, "state.json"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = pv.Close() })
	return pv
}

func newLoopbackClient(t *testing.T) (*Client, *loopback, *privval.FilePV) {
	t.Helper()

	pv := newFilePV(t)
	srv, err := NewServer(pv, "kms.test-chain")
	require.NoError(t, err)

	lb := &loopback{server: srv}
	client, err := NewClient(lb, "kms.test-chain", time.Second)
	require.NoError(t, err)
	return client, lb, pv
}

func TestClientSign(t *testing.T) {
	client, lb, pv := newLoopbackClient(t)

	msg, err := types.VoteSignBytes("test-chain", types.NewHandshakeVote(5, 2))
	require.NoError(t, err)

	sig, err := client.Sign(msg)
	require.NoError(t, err)

	pk, err := pv.PublicKey()
	require.NoError(t, err)
	assert.True(t, ed25519.Verify(pk.Data, msg, sig.Data))
	assert.Equal(t, []string{"kms.test-chain.sign"}, lb.requests)
}

func TestClientPublicKey(t *testing.T) {
	client, lb, pv := newLoopbackClient(t)

	pk, err := client.PublicKey()
	require.NoError(t, err)

	expected, err := pv.PublicKey()
	require.NoError(t, err)
	assert.True(t, types.PublicKeyEqual(expected, pk))
	assert.Equal(t, []string{"kms.test-chain.pubkey"}, lb.requests)
}

func TestClientPropagatesRemoteRejection(t *testing.T) {
	client, _, _ := newLoopbackClient(t)

	high, err := types.VoteSignBytes("test-chain", types.NewHandshakeVote(10, 0))
	require.NoError(t, err)
	_, err = client.Sign(high)
	require.NoError(t, err)

	low, err := types.VoteSignBytes("test-chain", types.NewHandshakeVote(3, 0))
	require.NoError(t, err)
	_, err = client.Sign(low)
	assert.True(t, errors.Is(err, ErrRemote))
	assert.Contains(t, err.Error(), "height regression")
}

func TestClientTransportError(t *testing.T) {
	client, lb, _ := newLoopbackClient(t)
	lb.err = nats.ErrTimeout

	_, err := client.Sign([]byte("x"))
	assert.True(t, errors.Is(err, nats.ErrTimeout))

	// No retries
	assert.Len(t, lb.requests, 1)
}

func TestClientRequestMismatch(t *testing.T) {
	client, lb, _ := newLoopbackClient(t)
	lb.rewrite = func([]byte) []byte {
		data, _ := json.Marshal(PublicKeyResponse{RequestID: "someone-else", PublicKey: make([]byte, 32)})
		return data
	}

	_, err := client.PublicKey()
	assert.True(t, errors.Is(err, ErrRequestMismatch))
}

func TestClientInvalidResponse(t *testing.T) {
	client, lb, _ := newLoopbackClient(t)
	lb.rewrite = func([]byte) []byte { return []byte("{") }

	_, err := client.PublicKey()
	assert.True(t, errors.Is(err, ErrInvalidResponse))
}

func TestClientClosed(t *testing.T) {
	client, _, _ := newLoopbackClient(t)
	require.NoError(t, client.Close())

	_, err := client.Sign([]byte("x"))
	assert.True(t, errors.Is(err, ErrClientClosed))
}

func TestServerMalformedRequest(t *testing.T) {
	srv, err := NewServer(newFilePV(t), "kms")
	require.NoError(t, err)

	var resp SignResponse
	require.NoError(t, json.Unmarshal(srv.HandleSign([]byte("nope")), &resp))
	assert.Contains(t, resp.Error, "malformed request")
}

func TestNewClientAndServerValidation(t *testing.T) {
	_, err := NewClient(&loopback{}, "", time.Second)
	assert.True(t, errors.Is(err, ErrEmptySubject))

	_, err = NewClient(&loopback{}, "kms", 0)
	assert.True(t, errors.Is(err, ErrNonPositiveLimit))

	_, err = NewServer(nil, "kms")
	assert.Error(t, err)
}
