package relayer

import (
	"context"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/AvaProtocol/mizan-relayer/core/chainio/mizan"
	"github.com/AvaProtocol/mizan-relayer/core/chainio/signer"
)

// MizanReader is the read side of the Mizan contract used to build authorizations.
type MizanReader interface {
	Relayer(ctx context.Context) (common.Address, error)
	HashProfitMetadata(ctx context.Context, profits []mizan.ProfitMetadata) ([32]byte, error)
	HashFlashLoanRequest(ctx context.Context, loanToken common.Address, loanAmount, expiry *big.Int, nonce, profitHash [32]byte) ([32]byte, error)
}

// Authorization is a relayer signed approval for one flash loan.
type Authorization struct {
	Profits     []mizan.ProfitMetadata
	Expiry      *big.Int
	Nonce       [32]byte
	MessageHash [32]byte
	Signature   []byte
}

func (a *Authorization) Meta() mizan.FlashLoanMeta {
	return mizan.FlashLoanMeta{
		Profits: a.Profits,
		Expiry:  a.Expiry,
		Nonce:   a.Nonce,
	}
}

// Authorizer signs flash loan requests on behalf of the relayer account. The hashes come from
// the Mizan contract itself so the encoding always matches what it verifies.
type Authorizer struct {
	mizan     MizanReader
	key       *ecdsa.PrivateKey
	loanToken common.Address
	ttl       time.Duration

	now   func() time.Time
	nonce func() ([32]byte, error)
}

func NewAuthorizer(m MizanReader, key *ecdsa.PrivateKey, loanToken common.Address, ttl time.Duration) *Authorizer {
	return &Authorizer{
		mizan:     m,
		key:       key,
		loanToken: loanToken,
		ttl:       ttl,
		now:       time.Now,
		nonce:     randomNonce,
	}
}

func (a *Authorizer) Address() common.Address {
	return crypto.PubkeyToAddress(a.key.PublicKey)
}

// Authorize binds loanAmount and profits to a fresh nonce and expiry and signs the resulting
// request hash.
func (a *Authorizer) Authorize(ctx context.Context, loanAmount *big.Int, profits []mizan.ProfitMetadata) (*Authorization, error) {
	profitHash, err := a.mizan.HashProfitMetadata(ctx, profits)
	if err != nil {
		return nil, err
	}

	nonce, err := a.nonce()
	if err != nil {
		return nil, fmt.Errorf("cannot generate nonce: %w", err)
	}
	expiry := big.NewInt(a.now().Add(a.ttl).Unix())

	messageHash, err := a.mizan.HashFlashLoanRequest(ctx, a.loanToken, loanAmount, expiry, nonce, profitHash)
	if err != nil {
		return nil, err
	}

	sig, err := signer.SignMessage(a.key, messageHash[:])
	if err != nil {
		return nil, fmt.Errorf("cannot sign flash loan request: %w", err)
	}

	return &Authorization{
		Profits:     profits,
		Expiry:      expiry,
		Nonce:       nonce,
		MessageHash: messageHash,
		Signature:   sig,
	}, nil
}

// randomNonce is keccak256 of a random uint256
func randomNonce() ([32]byte, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash(seed[:]), nil
}
