package privval

import (
	"crypto/ed25519"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/renameio/v2"
	"github.com/pkg/errors"

	"github.com/blockberries/leaderkms/keyring"
	"github.com/blockberries/leaderkms/types"
)

const (
	stateFilePerm = 0600
	stateDirPerm  = 0700
)

// FilePV is a file-based signing device. It signs canonical vote sign bytes
// with an ed25519 key and keeps a per-chain LastSignState on disk.
type FilePV struct {
	mu sync.Mutex

	keyFilePath   string
	stateFilePath string
	lock          *flock.Flock

	pubKey  types.PublicKey
	privKey ed25519.PrivateKey

	// Chains this key may sign for; empty means any
	allowed map[types.ChainID]struct{}

	// Last sign state per chain (for double-sign prevention)
	lastSignState map[types.ChainID]*LastSignState

	closed bool
}

// FilePVKey represents the key file structure
type FilePVKey struct {
	PubKey  []byte `json:"pub_key"`
	PrivKey []byte `json:"priv_key"`
}

// FilePVState represents the state file structure
type FilePVState struct {
	Chains map[string]FilePVChainState `json:"chains"`
}

// FilePVChainState is the persisted LastSignState of one chain
type FilePVChainState struct {
	Height        int64  `json:"height"`
	Round         int64  `json:"round"`
	Step          int8   `json:"step"`
	Signature     []byte `json:"signature,omitempty"`
	SignBytesHash []byte `json:"sign_bytes_hash,omitempty"`
}

// LoadFilePV opens an existing key file and its state file. A missing state
// file is created empty. The key file is never generated here.
//
// chainIDs restricts which chains the key will sign for.
func LoadFilePV(keyFilePath, stateFilePath string, chainIDs ...types.ChainID) (*FilePV, error) {
	pv := &FilePV{
		keyFilePath:   keyFilePath,
		stateFilePath: stateFilePath,
		allowed:       make(map[types.ChainID]struct{}, len(chainIDs)),
		lastSignState: make(map[types.ChainID]*LastSignState),
	}
	for _, id := range chainIDs {
		pv.allowed[id] = struct{}{}
	}

	if err := pv.acquireLock(); err != nil {
		return nil, err
	}

	if err := pv.loadKey(); err != nil {
		pv.releaseLock()
		return nil, err
	}

	if err := pv.loadState(); err != nil {
		pv.releaseLock()
		return nil, err
	}

	return pv, nil
}

// acquireLock takes an exclusive lock next to the state file so only one
// process signs with a given state
func (pv *FilePV) acquireLock() error {
	dir := filepath.Dir(pv.stateFilePath)
	if err := os.MkdirAll(dir, stateDirPerm); err != nil {
		return errors.Wrap(err, "failed to create state directory")
	}

	pv.lock = flock.New(pv.stateFilePath + ".lock")
	locked, err := pv.lock.TryLock()
	if err != nil {
		return errors.Wrap(err, "failed to lock state file")
	}
	if !locked {
		return errors.Wrap(ErrLocked, pv.stateFilePath)
	}
	return nil
}

func (pv *FilePV) releaseLock() {
	if pv.lock != nil {
		_ = pv.lock.Unlock()
	}
}

// loadKey loads the key from file
func (pv *FilePV) loadKey() error {
	data, err := os.ReadFile(pv.keyFilePath)
	if os.IsNotExist(err) {
		return errors.Wrap(ErrKeyFileNotFound, pv.keyFilePath)
	}
	if err != nil {
		return errors.Wrap(err, "failed to read key file")
	}

	var key FilePVKey
	if err := json.Unmarshal(data, &key); err != nil {
		return errors.Wrap(err, "failed to parse key file")
	}

	if len(key.PrivKey) != ed25519.PrivateKeySize {
		return errors.Errorf("invalid private key size %d", len(key.PrivKey))
	}
	privKey := ed25519.PrivateKey(key.PrivKey)

	pubKey, err := types.NewPublicKey(privKey.Public().(ed25519.PublicKey))
	if err != nil {
		return err
	}
	if len(key.PubKey) > 0 && !types.PublicKeyEqual(pubKey, types.PublicKey{Data: key.PubKey}) {
		return errors.New("public key in key file does not match private key")
	}

	pv.pubKey = pubKey
	pv.privKey = privKey
	return nil
}

// loadState loads the state from file
func (pv *FilePV) loadState() error {
	data, err := os.ReadFile(pv.stateFilePath)
	if os.IsNotExist(err) {
		// Fresh device: nothing signed on any chain
		return pv.saveState()
	}
	if err != nil {
		return errors.Wrap(err, "failed to read state file")
	}

	var state FilePVState
	if err := json.Unmarshal(data, &state); err != nil {
		return errors.Wrap(err, "failed to parse state file")
	}

	for id, cs := range state.Chains {
		lss := &LastSignState{
			Height: cs.Height,
			Round:  cs.Round,
			Step:   cs.Step,
		}
		if len(cs.Signature) > 0 {
			lss.Signature = types.Signature{Data: cs.Signature}
		}
		if len(cs.SignBytesHash) > 0 {
			h, err := types.NewHash(cs.SignBytesHash)
			if err != nil {
				return errors.Wrapf(err, "state for chain %q", id)
			}
			lss.SignBytesHash = &h
		}
		pv.lastSignState[types.ChainID(id)] = lss
	}

	return nil
}

// saveState atomically replaces the state file
func (pv *FilePV) saveState() error {
	state := FilePVState{Chains: make(map[string]FilePVChainState, len(pv.lastSignState))}

	ids := make([]string, 0, len(pv.lastSignState))
	for id := range pv.lastSignState {
		ids = append(ids, string(id))
	}
	sort.Strings(ids)

	for _, id := range ids {
		lss := pv.lastSignState[types.ChainID(id)]
		cs := FilePVChainState{
			Height:    lss.Height,
			Round:     lss.Round,
			Step:      lss.Step,
			Signature: lss.Signature.Data,
		}
		if lss.SignBytesHash != nil {
			cs.SignBytesHash = lss.SignBytesHash.Data
		}
		state.Chains[id] = cs
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to marshal state")
	}

	if err := renameio.WriteFile(pv.stateFilePath, data, stateFilePerm); err != nil {
		return errors.Wrap(err, "failed to write state file")
	}

	return nil
}

// PublicKey implements keyring.Backend
func (pv *FilePV) PublicKey() (types.PublicKey, error) {
	return pv.pubKey, nil
}

// LastSignState returns a copy of the last sign state for chainID
func (pv *FilePV) LastSignState(chainID types.ChainID) LastSignState {
	pv.mu.Lock()
	defer pv.mu.Unlock()

	if lss, ok := pv.lastSignState[chainID]; ok {
		return *lss
	}
	return LastSignState{}
}

// Sign implements keyring.Backend. signBytes must be a canonical vote; the
// decoded height/round/step is checked against the chain's last sign state,
// and the new state is persisted before the signature is returned.
func (pv *FilePV) Sign(signBytes []byte) (types.Signature, error) {
	vote, chainID, err := types.DecodeCanonicalVote(signBytes)
	if err != nil {
		return types.Signature{}, errors.Wrap(ErrInvalidSignBytes, err.Error())
	}
	step, err := MsgStep(vote.Type)
	if err != nil {
		return types.Signature{}, errors.Wrap(ErrInvalidSignBytes, err.Error())
	}

	pv.mu.Lock()
	defer pv.mu.Unlock()

	if pv.closed {
		return types.Signature{}, ErrClosed
	}
	if len(pv.allowed) > 0 {
		if _, ok := pv.allowed[chainID]; !ok {
			return types.Signature{}, errors.Wrapf(ErrChainNotAllowed, "%q", chainID)
		}
	}

	lss, ok := pv.lastSignState[chainID]
	if !ok {
		lss = &LastSignState{}
	}

	if err := lss.CheckHRS(vote.Height, vote.Round, step); err != nil {
		// Same message again: hand back the signature we already produced
		if err == ErrDoubleSign && lss.IsSameSignBytes(signBytes) {
			return lss.Signature, nil
		}
		if err == ErrDoubleSign && !types.IsHashEmpty(lss.SignBytesHash) {
			return types.Signature{}, errors.Wrapf(err, "chain %q at %d/%d/%d already signed %s",
				chainID, vote.Height, vote.Round, step, types.HashString(*lss.SignBytesHash))
		}
		return types.Signature{}, errors.Wrapf(err, "chain %q at %d/%d/%d", chainID, vote.Height, vote.Round, step)
	}

	sig := types.MustNewSignature(ed25519.Sign(pv.privKey, signBytes))
	hash := types.HashBytes(signBytes)

	prev, hadPrev := pv.lastSignState[chainID]
	pv.lastSignState[chainID] = &LastSignState{
		Height:        vote.Height,
		Round:         vote.Round,
		Step:          step,
		Signature:     sig,
		SignBytesHash: &hash,
	}

	// Persist before releasing the signature
	if err := pv.saveState(); err != nil {
		if hadPrev {
			pv.lastSignState[chainID] = prev
		} else {
			delete(pv.lastSignState, chainID)
		}
		return types.Signature{}, err
	}

	return sig, nil
}

// Close releases the state file lock
func (pv *FilePV) Close() error {
	pv.mu.Lock()
	defer pv.mu.Unlock()

	if pv.closed {
		return nil
	}
	pv.closed = true
	if pv.lock != nil {
		return pv.lock.Unlock()
	}
	return nil
}

// Ensure FilePV implements keyring.Backend
var _ keyring.Backend = (*FilePV)(nil)
