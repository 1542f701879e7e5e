package txpublisher

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/lightningnetwork/lnd/lntypes"
)

// WitnessData carries the claim-specific signing material the funder needs to
// re-sign a transaction after wallet inputs have changed its sighash. The
// concrete type identifies the claim being published.
type WitnessData interface {
	// witnessData is a marker method restricting the set of witness
	// variants to this package.
	witnessData()
}

// LocalAnchorWitness signs a spend of our own anchor output on a commitment
// transaction.
type LocalAnchorWitness struct {
	// CommitTxid is the commitment transaction carrying the anchor.
	CommitTxid chainhash.Hash

	// AnchorScript is the witness script of the anchor output.
	AnchorScript []byte
}

// RemoteAnchorWitness signs a spend of the remote party's anchor output.
type RemoteAnchorWitness struct {
	// CommitTxid is the commitment transaction carrying the anchor.
	CommitTxid chainhash.Hash

	// AnchorScript is the witness script of the anchor output.
	AnchorScript []byte
}

// HtlcSuccessWitness claims an incoming HTLC on our own commitment with the
// payment preimage and the remote signature.
type HtlcSuccessWitness struct {
	// Preimage is the payment preimage matching the HTLC hash.
	Preimage lntypes.Preimage

	// RemoteSig is the counterparty's signature over the HTLC-success
	// transaction.
	RemoteSig []byte
}

// HtlcTimeoutWitness reclaims an outgoing HTLC on our own commitment after
// its expiry.
type HtlcTimeoutWitness struct {
	// RemoteSig is the counterparty's signature over the HTLC-timeout
	// transaction.
	RemoteSig []byte

	// CltvExpiry is the absolute expiry height of the HTLC.
	CltvExpiry uint32
}

// ClaimHtlcSuccessWitness claims an incoming HTLC directly from the remote
// commitment with the payment preimage.
type ClaimHtlcSuccessWitness struct {
	// Preimage is the payment preimage matching the HTLC hash.
	Preimage lntypes.Preimage
}

// ClaimHtlcTimeoutWitness reclaims an outgoing HTLC directly from the remote
// commitment after its expiry.
type ClaimHtlcTimeoutWitness struct {
	// CltvExpiry is the absolute expiry height of the HTLC.
	CltvExpiry uint32
}

func (LocalAnchorWitness) witnessData()      {}
func (RemoteAnchorWitness) witnessData()     {}
func (HtlcSuccessWitness) witnessData()      {}
func (HtlcTimeoutWitness) witnessData()      {}
func (ClaimHtlcSuccessWitness) witnessData() {}
func (ClaimHtlcTimeoutWitness) witnessData() {}
