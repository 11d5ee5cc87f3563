package types

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHash(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i)
	}

	h, err := NewHash(data)
	require.NoError(t, err)
	assert.Equal(t, data, h.Data)

	// Input is copied
	data[0] = 0xff
	assert.Equal(t, byte(0), h.Data[0])
}

func TestNewHashError(t *testing.T) {
	_, err := NewHash(make([]byte, 16))
	assert.Error(t, err)
}

func TestHashBytes(t *testing.T) {
	h := HashBytes([]byte("hello world"))
	assert.Len(t, h.Data, HashSize)

	assert.True(t, HashEqual(h, HashBytes([]byte("hello world"))))
	assert.False(t, HashEqual(h, HashBytes([]byte("different"))))
}

func TestIsHashEmpty(t *testing.T) {
	assert.True(t, IsHashEmpty(nil))
	assert.True(t, IsHashEmpty(&Hash{}))
	assert.True(t, IsHashEmpty(&Hash{Data: make([]byte, 32)}))

	data := make([]byte, 32)
	data[0] = 1
	h, err := NewHash(data)
	require.NoError(t, err)
	assert.False(t, IsHashEmpty(&h))
}

func TestHashString(t *testing.T) {
	h := HashBytes(nil)
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashString(h))
}

func TestNewPublicKey(t *testing.T) {
	data := make([]byte, 32)
	pk, err := NewPublicKey(data)
	require.NoError(t, err)
	assert.Equal(t, data, pk.Data)

	_, err = NewPublicKey(make([]byte, 16))
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewPublicKey(make([]byte, 16)) })
}

func TestNewSignature(t *testing.T) {
	data := make([]byte, 64)
	sig, err := NewSignature(data)
	require.NoError(t, err)
	assert.Equal(t, data, sig.Data)
	assert.False(t, IsSignatureEmpty(sig))
	assert.True(t, IsSignatureEmpty(Signature{}))

	_, err = NewSignature(make([]byte, 32))
	assert.Error(t, err)
	assert.Panics(t, func() { MustNewSignature(make([]byte, 32)) })
}

func TestPublicKeyEqual(t *testing.T) {
	data1 := make([]byte, 32)
	data2 := make([]byte, 32)

	pk1 := MustNewPublicKey(data1)
	assert.True(t, PublicKeyEqual(pk1, MustNewPublicKey(data2)))

	data2[0] = 1
	pk3 := MustNewPublicKey(data2)
	assert.False(t, PublicKeyEqual(pk1, pk3))
	assert.Equal(t, "01"+strings.Repeat("00", 31), PublicKeyString(pk3))
}
