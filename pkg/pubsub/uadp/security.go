package uadp

import (
	pubsuberrors "github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/errors"
	"github.com/fieldbus-systems/opcua-pubsub/pkg/pubsub/security"
)

// VerifySignature checks nm's trailing signature footer against the key
// the key manager holds for securityGroupID at nm.SecurityTokenID. It is
// a separate step from Decode because the security group id a message
// belongs to is only known once the message has been matched to a
// ReaderGroup's configuration.
func VerifySignature(nm *NetworkMessage, securityGroupID string, km *security.KeyManager, crypto security.CryptoProvider) error {
	if !nm.SecurityEnabled {
		return nil
	}
	snap, ok := km.Snapshot(securityGroupID)
	if !ok {
		return pubsuberrors.Security("no key snapshot for security group "+securityGroupID, nil)
	}
	key, ok := snap.KeyByTokenID(nm.SecurityTokenID)
	if !ok {
		return pubsuberrors.Security("unknown security token id on wire", nil)
	}
	if len(nm.Signature) != crypto.SignatureSize() {
		return pubsuberrors.Security("signature length mismatch", nil)
	}
	if !crypto.Verify(key, nm.SignedPayload, nm.Signature) {
		return pubsuberrors.Security("network message signature verification failed", nil)
	}
	return nil
}
