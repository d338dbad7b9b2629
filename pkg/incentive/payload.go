package incentive

import (
	"github.com/pkg/errors"
)

const (
	WithdrawalCredentialsLength = 32
	PubkeyLength                = 48
	SignatureLength             = 96
	RootLength                  = 32

	// ValidatorRecordLength is the size of one validator chunk in a claim payload.
	ValidatorRecordLength = PubkeyLength + SignatureLength + RootLength

	// MaxValidatorCount bounds the configured validator count so payload sizes
	// stay far from overflow.
	MaxValidatorCount = 1 << 20
)

// ValidatorRecord is one validator deposit carried by a claim.
type ValidatorRecord struct {
	Pubkey    []byte
	Signature []byte
	Root      [32]byte
}

// Payload is a decoded claim payload: one shared withdrawal credential followed
// by the validator records in submission order.
type Payload struct {
	WithdrawalCredentials []byte
	Validators            []ValidatorRecord
}

// PayloadLength returns the exact payload size for validatorCount validators.
func PayloadLength(validatorCount uint64) uint64 {
	return WithdrawalCredentialsLength + validatorCount*ValidatorRecordLength
}

// DecodePayload splits raw into withdrawal credentials and validatorCount records.
func DecodePayload(raw []byte, validatorCount uint64) (*Payload, error) {
	if validatorCount > MaxValidatorCount {
		return nil, errors.Wrapf(ErrIncorrectLength, "validator count %d above maximum %d", validatorCount, MaxValidatorCount)
	}

	expected := PayloadLength(validatorCount)
	if uint64(len(raw)) != expected {
		return nil, errors.Wrapf(ErrIncorrectLength, "expected %d bytes for %d validators, got %d",
			expected, validatorCount, len(raw))
	}

	p := &Payload{
		WithdrawalCredentials: clone(raw[:WithdrawalCredentialsLength]),
		Validators:            make([]ValidatorRecord, validatorCount),
	}

	offset := WithdrawalCredentialsLength

	for i := range p.Validators {
		chunk := raw[offset : offset+ValidatorRecordLength]

		v := ValidatorRecord{
			Pubkey:    clone(chunk[:PubkeyLength]),
			Signature: clone(chunk[PubkeyLength : PubkeyLength+SignatureLength]),
		}
		copy(v.Root[:], chunk[PubkeyLength+SignatureLength:])

		p.Validators[i] = v
		offset += ValidatorRecordLength
	}

	return p, nil
}

// Encode serializes the payload in claim wire format.
func (p *Payload) Encode() ([]byte, error) {
	if len(p.WithdrawalCredentials) != WithdrawalCredentialsLength {
		return nil, errors.Errorf("withdrawal credentials must be %d bytes, got %d",
			WithdrawalCredentialsLength, len(p.WithdrawalCredentials))
	}

	out := make([]byte, 0, PayloadLength(uint64(len(p.Validators))))
	out = append(out, p.WithdrawalCredentials...)

	for i, v := range p.Validators {
		if len(v.Pubkey) != PubkeyLength {
			return nil, errors.Errorf("validator %d: pubkey must be %d bytes, got %d", i, PubkeyLength, len(v.Pubkey))
		}

		if len(v.Signature) != SignatureLength {
			return nil, errors.Errorf("validator %d: signature must be %d bytes, got %d", i, SignatureLength, len(v.Signature))
		}

		out = append(out, v.Pubkey...)
		out = append(out, v.Signature...)
		out = append(out, v.Root[:]...)
	}

	return out, nil
}

func clone(b []byte) []byte {
	return append([]byte(nil), b...)
}
